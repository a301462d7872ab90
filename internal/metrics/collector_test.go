package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector() *Collector {
	return NewCollector(prometheus.NewRegistry(), "delegator", zap.NewNop())
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	collector := newTestCollector()

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.workerCallsTotal)
	assert.NotNil(t, collector.permitsInUse)
	assert.NotNil(t, collector.workerConstructionsTotal)
	assert.NotNil(t, collector.planGenerationsTotal)
}

func TestCollector_RecordWorkerCall(t *testing.T) {
	collector := newTestCollector()

	collector.RecordWorkerCall("builder", 100*time.Millisecond, nil)
	collector.RecordWorkerCall("builder", 50*time.Millisecond, nil)
	collector.RecordWorkerCall("builder", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.workerCallsTotal.WithLabelValues("builder", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.workerCallsTotal.WithLabelValues("builder", "error")))
	assert.Greater(t, testutil.CollectAndCount(collector.workerCallDuration), 0)
}

func TestCollector_Permits(t *testing.T) {
	collector := newTestCollector()

	collector.PermitAcquired(time.Millisecond)
	collector.PermitAcquired(2 * time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.permitsInUse))

	collector.PermitReleased()
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.permitsInUse))
	assert.Equal(t, 1, testutil.CollectAndCount(collector.permitWaitDuration))
}

func TestCollector_RecordWorkerConstruction(t *testing.T) {
	collector := newTestCollector()

	collector.RecordWorkerConstruction("llm", "remote", time.Second, errors.New("refused"))
	collector.RecordWorkerConstruction("llm", "remote", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.workerConstructionsTotal.WithLabelValues("llm", "remote", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.workerConstructionsTotal.WithLabelValues("llm", "remote", "success")))
}

func TestCollector_NodesSummariesPlansReports(t *testing.T) {
	collector := newTestCollector()

	collector.RecordNodeExecution("parallel")
	collector.RecordSummaryFallback("no_summarizer")
	collector.RecordPlanGeneration(nil)
	collector.RecordReportSave("file", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.nodeExecutionsTotal.WithLabelValues("parallel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.summaryFallbacks.WithLabelValues("no_summarizer")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.planGenerationsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.reportSavesTotal.WithLabelValues("file", "success")))
}

func TestNewCollector_IsolatedPerRegistry(t *testing.T) {
	// 同一 namespace 可在不同 registry 上各建一个 Collector
	regA, regB := prometheus.NewRegistry(), prometheus.NewRegistry()
	a := NewCollector(regA, "delegator", zap.NewNop())
	b := NewCollector(regB, "delegator", zap.NewNop())

	a.RecordPlanGeneration(nil)

	families, err := regA.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "delegator_plan_generations_total")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.planGenerationsTotal.WithLabelValues("success")))
}

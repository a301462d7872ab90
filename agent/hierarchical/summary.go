package hierarchical

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BaSui01/delegator/agent/structured"
	"github.com/BaSui01/delegator/agent/tasks"
)

// Ellipsis marks a truncated summary.
const Ellipsis = "…"

// 摘要回退原因
const (
	fallbackLookup  = "lookup_error"
	fallbackWorker  = "worker_error"
	fallbackNoJSON  = "no_json"
	fallbackMissing = "missing_summary"
)

// summarize condenses output. Any summarizer failure falls back to a
// truncated prefix; it never fails the node.
func (e *Executor) summarize(ctx context.Context, r *run, node *tasks.Node, path, output string) tasks.Summary {
	key := e.config.SummarizerKey
	if key == "" {
		return TruncateSummary(output, e.config.SummaryMaxChars)
	}

	fallback := func(reason string, err error) tasks.Summary {
		e.recorder.RecordSummaryFallback(reason)
		fields := []zap.Field{
			zap.String("run_id", r.id),
			zap.String("node_id", node.ID),
			zap.String("summarizer", key),
			zap.String("reason", reason),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		e.logger.Warn("summary fallback", fields...)
		return TruncateSummary(output, e.config.SummaryMaxChars)
	}

	worker, err := e.registry.GetWorker(ctx, key)
	if err != nil {
		return fallback(fallbackLookup, err)
	}

	reply, err := e.call(ctx, r, key, worker, buildSummaryPrompt(path, output))
	if err != nil {
		return fallback(fallbackWorker, err)
	}

	data, ok := structured.ExtractJSON(reply)
	if !ok {
		return fallback(fallbackNoJSON, nil)
	}
	if s, _ := data[tasks.SummaryKey].(string); strings.TrimSpace(s) == "" {
		return fallback(fallbackMissing, nil)
	}
	return tasks.Summary(data)
}

// TruncateSummary builds a summary from the first maxChars characters of
// output, with whitespace collapsed. Truncated text ends with Ellipsis.
func TruncateSummary(output string, maxChars int) tasks.Summary {
	text := singleLine(output)
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:maxChars])) + Ellipsis
	}
	return tasks.Summary{tasks.SummaryKey: text}
}

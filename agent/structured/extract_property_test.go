package structured

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// jsonValue generates JSON-serializable leaf and nested values.
func jsonValue(depth int) *rapid.Generator[any] {
	leaves := []*rapid.Generator[any]{
		rapid.Map(rapid.StringMatching(`[ -~]{0,20}`), func(s string) any { return s }),
		rapid.Map(rapid.IntRange(-1_000_000, 1_000_000), func(i int) any { return i }),
		rapid.Map(rapid.Bool(), func(b bool) any { return b }),
		rapid.Just[any](nil),
	}
	if depth <= 0 {
		return rapid.OneOf(leaves...)
	}
	nested := append(leaves,
		rapid.Map(rapid.SliceOfN(jsonValue(depth-1), 0, 4), func(v []any) any { return v }),
		rapid.Map(jsonObject(depth-1), func(m map[string]any) any { return m }),
	)
	return rapid.OneOf(nested...)
}

func jsonObject(depth int) *rapid.Generator[map[string]any] {
	return rapid.MapOfN(rapid.StringMatching(`[a-z_]{1,8}`), jsonValue(depth), 0, 5)
}

// normalize round-trips v through encoding/json so numbers compare as float64.
func normalize(t *rapid.T, v map[string]any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

// Embedding any JSON object in a fenced block followed by prose extracts it back.
func TestProperty_ExtractRoundTripFenced(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := jsonObject(2).Draw(t, "object")
		prose := rapid.StringMatching(`[A-Za-z0-9 ,.!?:;'-]{0,60}`).Draw(t, "prose")
		lead := rapid.StringMatching(`[A-Za-z0-9 ,.!?:;'-]{0,40}`).Draw(t, "lead")

		data, err := json.Marshal(m)
		require.NoError(t, err)

		text := lead + "\n```json\n" + string(data) + "\n```\n" + prose
		got, ok := ExtractJSON(text)
		if !ok {
			t.Fatalf("no data extracted from %q", text)
		}
		require.Equal(t, normalize(t, m), got)
	})
}

// A bare object surrounded by brace-free prose is extracted as well.
func TestProperty_ExtractRoundTripBare(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := jsonObject(2).Draw(t, "object")
		before := rapid.StringMatching(`[A-Za-z0-9 ,.!?:;'"-]{0,40}`).Draw(t, "before")
		after := rapid.StringMatching(`[A-Za-z0-9 ,.!?:;'"-]{0,40}`).Draw(t, "after")

		data, err := json.Marshal(m)
		require.NoError(t, err)

		got, ok := ExtractJSON(before + string(data) + after)
		if !ok {
			t.Fatalf("no data extracted")
		}
		require.Equal(t, normalize(t, m), got)
	})
}

// Noise without any opening brace never yields data.
func TestProperty_NoiseYieldsNoData(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		noise := rapid.StringMatching("[^{]{0,200}").Draw(t, "noise")
		got, ok := ExtractJSON(noise)
		if ok || got != nil {
			t.Fatalf("unexpected data %v from %q", got, noise)
		}
	})
}

// Arbitrary input never panics.
func TestProperty_ArbitraryInputIsSafe(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		_, _ = ExtractJSON(rapid.String().Draw(t, "text"))
	})
}

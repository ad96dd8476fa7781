package proposal

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clipshear/clipshear/internal/types"
)

const validArray = `[
  {
    "Start": "00:01:05",
    "End": "00:01:35",
    "Duration": 30,
    "Reasoning": "Strong hook and a complete thought.",
    "Excerpt": "The one mistake everyone makes"
  },
  {
    "Start": "00:10:00",
    "End": "00:10:45",
    "Duration": 45,
    "Reasoning": "Self-contained story.",
    "Excerpt": "How we fixed it"
  }
]`

func TestParse_BareArray(t *testing.T) {
	t.Parallel()

	cands, err := Parse(validArray)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].Start != 65*time.Second {
		t.Errorf("Start = %v, want 1m5s", cands[0].Start)
	}
	if cands[0].End != 95*time.Second {
		t.Errorf("End = %v, want 1m35s", cands[0].End)
	}
	if cands[0].DurationSeconds != 30 {
		t.Errorf("DurationSeconds = %d, want 30", cands[0].DurationSeconds)
	}
	if cands[1].Excerpt != "How we fixed it" {
		t.Errorf("Excerpt = %q", cands[1].Excerpt)
	}
}

func TestParse_ProseAndFences(t *testing.T) {
	t.Parallel()

	wrapped := "Sure! Here are the best clips I found:\n```json\n" + validArray + "\n```\nLet me know if you want more."
	cands, err := Parse(wrapped)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
}

func TestParse_BracketsInsideStrings(t *testing.T) {
	t.Parallel()

	raw := `[{"Start":"00:00:01","End":"00:00:10","Duration":9,"Reasoning":"mentions [arrays] and \"quotes\"","Excerpt":"x [y] z"}]`
	cands, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cands[0].Reasoning != `mentions [arrays] and "quotes"` {
		t.Errorf("Reasoning = %q", cands[0].Reasoning)
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"no array", "no clips today"},
		{"unbalanced", `[{"Start":"00:00:01"`},
		{"missing field", `[{"Start":"00:00:01","End":"00:00:10","Duration":9,"Reasoning":"r"}]`},
		{"extra field", `[{"Start":"00:00:01","End":"00:00:10","Duration":9,"Reasoning":"r","Excerpt":"e","Score":5}]`},
		{"bad timestamp", `[{"Start":"0:00:01","End":"00:00:10","Duration":9,"Reasoning":"r","Excerpt":"e"}]`},
		{"minutes out of range", `[{"Start":"00:61:01","End":"01:02:10","Duration":9,"Reasoning":"r","Excerpt":"e"}]`},
		{"fractional duration", `[{"Start":"00:00:01","End":"00:00:10","Duration":9.5,"Reasoning":"r","Excerpt":"e"}]`},
		{"duration as string", `[{"Start":"00:00:01","End":"00:00:10","Duration":"9","Reasoning":"r","Excerpt":"e"}]`},
		{"not objects", `[1, 2, 3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.raw)
			if err == nil {
				t.Fatalf("expected error")
			}
			var me *MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("expected MalformedError, got %T: %v", err, err)
			}
		})
	}
}

func TestParse_EmptyArray(t *testing.T) {
	t.Parallel()

	cands, err := Parse("[]")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("expected no candidates, got %d", len(cands))
	}
}

func TestRender_RoundTrip(t *testing.T) {
	t.Parallel()

	in := []types.SegmentCandidate{
		{Start: 65 * time.Second, End: 95 * time.Second, DurationSeconds: 30, Reasoning: "hook", Excerpt: "the hook"},
		{Start: 2 * time.Hour, End: 2*time.Hour + 40*time.Second, DurationSeconds: 40, Reasoning: "closer", Excerpt: "the close"},
	}
	raw, err := Render(in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(raw, `"Start": "02:00:00"`) {
		t.Errorf("rendered output missing hour timestamp:\n%s", raw)
	}
	out, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse(Render(...)): %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("round trip lost candidates: %d != %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("candidate %d = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestTimestamps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"00:00:00", 0, true},
		{"00:01:05", 65 * time.Second, true},
		{"10:59:59", 10*time.Hour + 59*time.Minute + 59*time.Second, true},
		{" 00:00:05 ", 5 * time.Second, true},
		{"1:02:03", 0, false},
		{"00:60:00", 0, false},
		{"00:00:60", 0, false},
		{"00:00", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in)
		if tc.ok != (err == nil) {
			t.Errorf("ParseTimestamp(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && got != tc.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if s := FormatTimestamp(3*time.Hour + 4*time.Minute + 5*time.Second); s != "03:04:05" {
		t.Errorf("FormatTimestamp = %q", s)
	}
	if s := FormatTimestamp(-time.Second); s != "00:00:00" {
		t.Errorf("FormatTimestamp(negative) = %q", s)
	}
}

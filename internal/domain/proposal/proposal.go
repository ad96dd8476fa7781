// Package proposal parses raw segmentation-provider output into segment
// candidates. Providers are prompted to return a bare JSON array but often
// wrap it in prose or markdown fences, so parsing extracts the first balanced
// array before decoding. Bounds and overlap validation happen downstream.
package proposal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clipshear/clipshear/internal/types"
)

// MalformedError reports provider output that could not be parsed into a
// complete candidate set. A malformed response is never partially applied.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return "malformed provider response: " + e.Reason
}

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

var timestampRE = regexp.MustCompile(`^(\d{2}):([0-5]\d):([0-5]\d)$`)

// requiredFields is the exact wire contract for one proposal object.
var requiredFields = []string{"Start", "End", "Duration", "Reasoning", "Excerpt"}

// Parse extracts and decodes the provider's segment array. Each object must
// carry exactly the five contract fields: Start and End as hh:mm:ss
// timestamps, Duration as integer seconds, Reasoning and Excerpt as strings.
func Parse(raw string) ([]types.SegmentCandidate, error) {
	arr, err := extractArray(raw)
	if err != nil {
		return nil, err
	}

	var objects []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(arr), &objects); err != nil {
		return nil, malformed("not a parseable array: %v", err)
	}

	out := make([]types.SegmentCandidate, 0, len(objects))
	for i, obj := range objects {
		if len(obj) != len(requiredFields) {
			return nil, malformed("object %d: expected exactly %d fields, got %d", i, len(requiredFields), len(obj))
		}
		for _, f := range requiredFields {
			if _, ok := obj[f]; !ok {
				return nil, malformed("object %d: missing field %q", i, f)
			}
		}

		var startStr, endStr, reasoning, excerpt string
		if err := json.Unmarshal(obj["Start"], &startStr); err != nil {
			return nil, malformed("object %d: Start is not a string", i)
		}
		if err := json.Unmarshal(obj["End"], &endStr); err != nil {
			return nil, malformed("object %d: End is not a string", i)
		}
		if err := json.Unmarshal(obj["Reasoning"], &reasoning); err != nil {
			return nil, malformed("object %d: Reasoning is not a string", i)
		}
		if err := json.Unmarshal(obj["Excerpt"], &excerpt); err != nil {
			return nil, malformed("object %d: Excerpt is not a string", i)
		}

		var duration int64
		if err := json.Unmarshal(obj["Duration"], &duration); err != nil {
			return nil, malformed("object %d: Duration is not an integer", i)
		}

		start, err := ParseTimestamp(startStr)
		if err != nil {
			return nil, malformed("object %d: Start %q does not match hh:mm:ss", i, startStr)
		}
		end, err := ParseTimestamp(endStr)
		if err != nil {
			return nil, malformed("object %d: End %q does not match hh:mm:ss", i, endStr)
		}

		out = append(out, types.SegmentCandidate{
			Start:           start,
			End:             end,
			DurationSeconds: int(duration),
			Reasoning:       reasoning,
			Excerpt:         excerpt,
		})
	}
	return out, nil
}

// Render serializes candidates back into the five-field wire format. The four
// textual fields round-trip exactly through Parse followed by Render.
func Render(cands []types.SegmentCandidate) (string, error) {
	type wire struct {
		Start     string `json:"Start"`
		End       string `json:"End"`
		Duration  int    `json:"Duration"`
		Reasoning string `json:"Reasoning"`
		Excerpt   string `json:"Excerpt"`
	}
	arr := make([]wire, 0, len(cands))
	for _, c := range cands {
		arr = append(arr, wire{
			Start:     FormatTimestamp(c.Start),
			End:       FormatTimestamp(c.End),
			Duration:  c.DurationSeconds,
			Reasoning: c.Reasoning,
			Excerpt:   c.Excerpt,
		})
	}
	b, err := json.MarshalIndent(arr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidates: %w", err)
	}
	return string(b), nil
}

// ParseTimestamp parses a fixed hh:mm:ss timestamp into a duration offset.
func ParseTimestamp(s string) (time.Duration, error) {
	m := timestampRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("timestamp %q does not match hh:mm:ss", s)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	return time.Duration(h)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second, nil
}

// FormatTimestamp renders a duration offset as hh:mm:ss, truncating
// sub-second precision.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// extractArray returns the first balanced JSON array in s. The scan is
// string-aware so brackets inside string values do not unbalance it.
func extractArray(s string) (string, error) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", malformed("no JSON array found")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", malformed("unbalanced JSON array")
}

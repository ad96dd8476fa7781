package fake

import (
	"context"
	"testing"
	"time"

	"github.com/clipshear/clipshear/internal/domain/proposal"
	"github.com/clipshear/clipshear/internal/domain/segments"
	"github.com/clipshear/clipshear/internal/ports"
)

func TestTranscribe(t *testing.T) {
	t.Parallel()

	var fractions []float64
	tr, err := New().Transcribe(context.Background(), "ignored.wav", func(f float64) {
		fractions = append(fractions, f)
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("fake transcript invalid: %v", err)
	}
	if tr.Duration() != 5*time.Minute {
		t.Errorf("duration = %v, want 5m", tr.Duration())
	}
	if len(fractions) == 0 || fractions[0] != 0 || fractions[len(fractions)-1] != 1 {
		t.Errorf("progress fractions = %v", fractions)
	}
}

func TestProposeSegments_OutputNormalizesCleanly(t *testing.T) {
	t.Parallel()

	p := New()
	raw, err := p.ProposeSegments(context.Background(), Transcript(), ports.ProposalConfig{TargetCount: 3, MaxSegmentLength: time.Minute})
	if err != nil {
		t.Fatalf("ProposeSegments: %v", err)
	}

	cands, err := proposal.Parse(raw)
	if err != nil {
		t.Fatalf("fake output does not parse: %v", err)
	}
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}

	segs, rejs := segments.Normalize(Transcript(), cands, segments.Options{ProjectID: "p"})
	if len(rejs) != 0 {
		t.Fatalf("fake candidates rejected: %+v", rejs)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}

	// The third proposal deliberately overruns the transcript; normalization
	// clamps it instead of dropping it.
	last := segs[len(segs)-1]
	if last.End != 5*time.Minute {
		t.Errorf("last segment end = %v, want 5m", last.End)
	}
}

// Package segments validates and normalizes parsed segment candidates against
// a transcript, producing persistable segments plus per-candidate rejections.
// A bad candidate never aborts the batch.
package segments

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clipshear/clipshear/internal/types"
)

// RejectReason classifies why a candidate was dropped.
type RejectReason string

const (
	RejectInvalidRange          RejectReason = "invalid_range"
	RejectStartBeyondTranscript RejectReason = "start_beyond_transcript"
	RejectDuplicateOverlap      RejectReason = "duplicate_overlap"
)

// Rejection records a dropped candidate with enough context for reporting.
type Rejection struct {
	Candidate types.SegmentCandidate
	Reason    RejectReason
	Detail    string
}

// DefaultOverlapThreshold is the fraction of the shorter candidate's duration
// beyond which two candidates are considered duplicates.
const DefaultOverlapThreshold = 0.5

// Options tunes normalization. Zero values select defaults.
type Options struct {
	ProjectID        string
	OverlapThreshold float64
	Now              func() time.Time
	NewID            func() string
}

func (o Options) withDefaults() Options {
	if o.OverlapThreshold <= 0 {
		o.OverlapThreshold = DefaultOverlapThreshold
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

type clamped struct {
	cand   types.SegmentCandidate
	start  time.Duration
	end    time.Duration
	order  int
	capped bool
}

// Normalize applies the validation rules in provider order: ranges with
// end <= start are rejected, starts at or past the transcript end are
// rejected, ends past the transcript end are clamped (overruns from provider
// estimation error are expected and salvaged), and near-duplicate overlaps
// are deduplicated keeping the candidate with the longer reasoning. Accepted
// segments come back sorted by start, ties in provider order, all in status
// Generated.
func Normalize(tr types.Transcript, cands []types.SegmentCandidate, opts Options) ([]types.Segment, []Rejection) {
	opts = opts.withDefaults()
	total := tr.Duration()

	var rejections []Rejection
	accepted := make([]clamped, 0, len(cands))
	for i, c := range cands {
		if c.End <= c.Start {
			rejections = append(rejections, Rejection{
				Candidate: c,
				Reason:    RejectInvalidRange,
				Detail:    fmt.Sprintf("end %s <= start %s", c.End, c.Start),
			})
			continue
		}
		if c.Start >= total {
			rejections = append(rejections, Rejection{
				Candidate: c,
				Reason:    RejectStartBeyondTranscript,
				Detail:    fmt.Sprintf("start %s >= transcript end %s", c.Start, total),
			})
			continue
		}
		cl := clamped{cand: c, start: c.Start, end: c.End, order: i}
		if cl.end > total {
			cl.end = total
			cl.capped = true
		}
		accepted = append(accepted, cl)
	}

	// Dedup in descending reasoning length (a proxy for richer
	// justification; stable, so a tie keeps the earlier candidate). A kept
	// candidate is never displaced, so every accepted one has been compared
	// directly against every other and the pairwise overlap bound holds.
	byReasoning := make([]clamped, len(accepted))
	copy(byReasoning, accepted)
	sort.SliceStable(byReasoning, func(i, j int) bool {
		return len(byReasoning[i].cand.Reasoning) > len(byReasoning[j].cand.Reasoning)
	})

	kept := make([]clamped, 0, len(byReasoning))
	for _, c := range byReasoning {
		dup := false
		for _, k := range kept {
			frac := overlapFraction(c, k)
			if frac > opts.OverlapThreshold {
				rejections = append(rejections, overlapRejection(c, k, frac))
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].start == kept[j].start {
			return kept[i].order < kept[j].order
		}
		return kept[i].start < kept[j].start
	})

	now := opts.Now()
	out := make([]types.Segment, 0, len(kept))
	for _, c := range kept {
		out = append(out, types.Segment{
			ID:             opts.NewID(),
			ProjectID:      opts.ProjectID,
			Start:          c.start,
			End:            c.end,
			TranscriptText: tr.TextBetween(c.start, c.end),
			Summary:        c.cand.Excerpt,
			Reasoning:      c.cand.Reasoning,
			Status:         types.SegmentGenerated,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return out, rejections
}

func overlapRejection(loser, winner clamped, frac float64) Rejection {
	return Rejection{
		Candidate: loser.cand,
		Reason:    RejectDuplicateOverlap,
		Detail: fmt.Sprintf("overlaps %.0f%% with candidate %s-%s",
			frac*100, winner.start, winner.end),
	}
}

// overlapFraction returns the overlap between two candidates as a fraction of
// the shorter one's duration.
func overlapFraction(a, b clamped) float64 {
	lo := a.start
	if b.start > lo {
		lo = b.start
	}
	hi := a.end
	if b.end < hi {
		hi = b.end
	}
	if hi <= lo {
		return 0
	}
	shorter := a.end - a.start
	if d := b.end - b.start; d < shorter {
		shorter = d
	}
	if shorter <= 0 {
		return 0
	}
	return float64(hi-lo) / float64(shorter)
}

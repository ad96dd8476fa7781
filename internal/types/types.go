package types

import (
	"fmt"
	"time"
)

// Utterance is a single timestamped line of transcribed speech. Offsets are
// relative to the start of the source media.
type Utterance struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Transcript is an ordered, immutable sequence of utterances produced by a
// transcription backend. Utterances are non-decreasing in Start and every
// utterance satisfies Start < End.
type Transcript struct {
	Utterances []Utterance `json:"utterances"`
}

// Duration returns the total duration covered by the transcript, i.e. the
// latest utterance end.
func (t Transcript) Duration() time.Duration {
	var max time.Duration
	for _, u := range t.Utterances {
		if u.End > max {
			max = u.End
		}
	}
	return max
}

// Validate checks the transcript invariants.
func (t Transcript) Validate() error {
	var prevStart time.Duration
	for i, u := range t.Utterances {
		if u.End <= u.Start {
			return fmt.Errorf("utterance %d: end %s <= start %s", i, u.End, u.Start)
		}
		if u.Start < prevStart {
			return fmt.Errorf("utterance %d: start %s before previous start %s", i, u.Start, prevStart)
		}
		prevStart = u.Start
	}
	return nil
}

// TextBetween joins the text of all utterances overlapping [start, end).
func (t Transcript) TextBetween(start, end time.Duration) string {
	var out string
	for _, u := range t.Utterances {
		if u.End <= start || u.Start >= end {
			continue
		}
		if out != "" {
			out += " "
		}
		out += u.Text
	}
	return out
}

// SegmentCandidate is a segment proposal parsed from provider output, before
// any bounds or overlap validation.
type SegmentCandidate struct {
	Start           time.Duration
	End             time.Duration
	DurationSeconds int
	Reasoning       string
	Excerpt         string
}

// SegmentStatus is the per-segment extraction lifecycle state.
type SegmentStatus string

const (
	SegmentGenerated  SegmentStatus = "generated"
	SegmentApproved   SegmentStatus = "approved"
	SegmentExtracting SegmentStatus = "extracting"
	SegmentExtracted  SegmentStatus = "extracted"
	SegmentFailed     SegmentStatus = "failed"
)

// CanTransitionTo reports whether next is a legal successor state.
// Extracted is terminal; Failed may only be reset back to Approved.
func (s SegmentStatus) CanTransitionTo(next SegmentStatus) bool {
	switch s {
	case SegmentGenerated:
		return next == SegmentApproved
	case SegmentApproved:
		return next == SegmentExtracting
	case SegmentExtracting:
		return next == SegmentExtracted || next == SegmentFailed
	case SegmentFailed:
		return next == SegmentApproved
	default:
		return false
	}
}

// Segment is a validated, persisted excerpt of a project's source video.
type Segment struct {
	ID             string
	ProjectID      string
	Start          time.Duration
	End            time.Duration
	TranscriptText string
	Summary        string
	Reasoning      string
	ClipPath       string
	Status         SegmentStatus
	FailureReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProjectStatus tracks how far a project has moved through the pipeline.
type ProjectStatus string

const (
	ProjectCreated     ProjectStatus = "created"
	ProjectTranscribed ProjectStatus = "transcribed"
	ProjectSegmented   ProjectStatus = "segmented"
)

// Project owns its segments exclusively; deleting a project cascades to them.
type Project struct {
	ID             string
	Name           string
	VideoPath      string
	Duration       time.Duration
	Status         ProjectStatus
	TranscriptPath string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AspectRatioMode selects the reframing applied during clip extraction.
type AspectRatioMode string

const (
	AspectOriginal                 AspectRatioMode = "original"
	AspectVerticalCrop             AspectRatioMode = "vertical-crop"
	AspectVerticalBlurBackground   AspectRatioMode = "vertical-blur"
	AspectVerticalStackSplitScreen AspectRatioMode = "vertical-split"
	AspectVerticalStackPodcast     AspectRatioMode = "vertical-podcast"
	AspectVerticalLetterbox        AspectRatioMode = "vertical-letterbox"
)

// ParseAspectRatioMode maps a user-supplied mode name to the enumeration.
func ParseAspectRatioMode(s string) (AspectRatioMode, error) {
	switch AspectRatioMode(s) {
	case AspectOriginal, AspectVerticalCrop, AspectVerticalBlurBackground,
		AspectVerticalStackSplitScreen, AspectVerticalStackPodcast, AspectVerticalLetterbox:
		return AspectRatioMode(s), nil
	}
	return "", fmt.Errorf("unknown aspect ratio mode %q", s)
}

// SubtitleStyle configures subtitle burn-in. Colors are RGB hex ("#RRGGBB");
// the renderer-specific byte order is applied at serialization time.
type SubtitleStyle struct {
	FontName     string
	FontSize     int
	PrimaryColor string
	OutlineColor string
	BackColor    string
	OutlineWidth int
	ShadowDepth  int
	Alignment    int
	MarginV      int
	AllCaps      bool
	WrapWidth    int
}

// DefaultSubtitleStyle is tuned for vertical short-form layouts.
func DefaultSubtitleStyle() SubtitleStyle {
	return SubtitleStyle{
		FontName:     "Inter",
		FontSize:     64,
		PrimaryColor: "#FFFFFF",
		OutlineColor: "#000000",
		BackColor:    "#000000",
		OutlineWidth: 4,
		ShadowDepth:  1,
		Alignment:    2,
		MarginV:      80,
		AllCaps:      false,
		WrapWidth:    42,
	}
}

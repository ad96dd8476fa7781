// Package fake provides a deterministic provider double with zero network
// and filesystem access. It backs offline runs (--transcriber fake,
// --proposer fake) and keeps
// pipeline tests reproducible.
package fake

import (
	"context"
	"time"

	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/types"
)

type Provider struct{}

func New() *Provider { return &Provider{} }

// Transcribe ignores the audio path and returns a fixed transcript.
func (p *Provider) Transcribe(_ context.Context, _ string, progress ports.ProgressFunc) (types.Transcript, error) {
	if progress != nil {
		progress(0)
		progress(0.5)
		progress(1)
	}
	return Transcript(), nil
}

// ProposeSegments returns a fixed response. The array is deliberately wrapped
// in prose and one proposal overruns the transcript end, so a full pipeline
// run exercises the parser's leniency and the validator's clamping.
func (p *Provider) ProposeSegments(_ context.Context, _ types.Transcript, _ ports.ProposalConfig) (string, error) {
	return `Here are the segments I found:
[
  {"Start": "00:00:10", "End": "00:00:40", "Duration": 30, "Reasoning": "Strong hook with a concrete claim that stands alone.", "Excerpt": "Why most clips fail in the first three seconds."},
  {"Start": "00:01:30", "End": "00:02:05", "Duration": 35, "Reasoning": "Complete step-by-step explanation with a payoff.", "Excerpt": "The three-step framing checklist."},
  {"Start": "00:04:30", "End": "00:05:20", "Duration": 50, "Reasoning": "Memorable closing thought.", "Excerpt": "What to do before you hit publish."}
]
Hope this helps!`, nil
}

// Transcript is the fixed five-minute transcript the fake backends share.
func Transcript() types.Transcript {
	mk := func(startSec, endSec int, text string) types.Utterance {
		return types.Utterance{
			Start: time.Duration(startSec) * time.Second,
			End:   time.Duration(endSec) * time.Second,
			Text:  text,
		}
	}
	return types.Transcript{Utterances: []types.Utterance{
		mk(0, 12, "Welcome back, today we are talking about short-form video."),
		mk(12, 45, "Most clips fail in the first three seconds because the hook is buried."),
		mk(45, 90, "Let me show you what a good hook actually looks like."),
		mk(90, 130, "Step one, lead with the claim, not the context."),
		mk(130, 170, "Step two, cut every sentence that does not earn its place."),
		mk(170, 210, "Step three, end on a complete thought, never mid-sentence."),
		mk(210, 260, "Here is an example from a podcast we edited last week."),
		mk(260, 300, "Notice how the clip stands alone without any setup."),
	}}
}

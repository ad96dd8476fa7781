// Package prompt renders the segmentation prompts sent to LLM backends and
// the annotated transcript format they consume.
package prompt

import (
	"strconv"
	"strings"
	"time"

	"github.com/clipshear/clipshear/internal/domain/proposal"
	"github.com/clipshear/clipshear/internal/types"
)

// DefaultSystemPrompt instructs the model to answer with the bare five-field
// array contract. Providers do not always comply; the parser tolerates
// surrounding prose.
const DefaultSystemPrompt = `You are a short-form video editor. You select the most engaging, self-contained moments from a transcript of a longer recording.

Respond with a JSON array only, no markdown and no commentary. Each element must have exactly these fields:
"Start": clip start as "hh:mm:ss"
"End": clip end as "hh:mm:ss"
"Duration": clip length in whole seconds
"Reasoning": why this moment works as a standalone clip
"Excerpt": a one-sentence summary of the moment`

// DefaultUserPrompt carries the substitution placeholders for the request
// parameters and the annotated transcript.
const DefaultUserPrompt = `Select up to {segmentCount} clips, each at most {segmentLength} seconds long. Clips must start and end on complete thoughts and must not overlap.

Transcript:
{transcript}`

// Render substitutes the {segmentLength}, {segmentCount} and {transcript}
// placeholders. Unknown placeholders pass through untouched so custom
// templates stay inspectable.
func Render(tmpl string, segmentLengthSec, segmentCount int, transcript string) string {
	return strings.NewReplacer(
		"{segmentLength}", strconv.Itoa(segmentLengthSec),
		"{segmentCount}", strconv.Itoa(segmentCount),
		"{transcript}", transcript,
	).Replace(tmpl)
}

// Annotate renders a transcript in the "[hh:mm:ss -> hh:mm:ss] text" line
// format the prompts reference.
func Annotate(tr types.Transcript) string {
	var b strings.Builder
	for _, u := range tr.Utterances {
		b.WriteString("[")
		b.WriteString(proposal.FormatTimestamp(u.Start))
		b.WriteString(" -> ")
		b.WriteString(proposal.FormatTimestamp(u.End))
		b.WriteString("] ")
		b.WriteString(u.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Build produces the final system and user messages for a proposal request.
func Build(tr types.Transcript, systemTmpl, userTmpl string, targetCount int, maxLen time.Duration) (system, user string) {
	if systemTmpl == "" {
		systemTmpl = DefaultSystemPrompt
	}
	if userTmpl == "" {
		userTmpl = DefaultUserPrompt
	}
	lengthSec := int(maxLen / time.Second)
	annotated := Annotate(tr)
	system = Render(systemTmpl, lengthSec, targetCount, annotated)
	user = Render(userTmpl, lengthSec, targetCount, annotated)
	return system, user
}

package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/clipshear/clipshear/internal/types"
)

func TestRender(t *testing.T) {
	t.Parallel()

	got := Render("pick {segmentCount} clips of {segmentLength}s from:\n{transcript}", 45, 8, "TRANSCRIPT")
	want := "pick 8 clips of 45s from:\nTRANSCRIPT"
	if got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestRender_UnknownPlaceholderPassesThrough(t *testing.T) {
	t.Parallel()

	got := Render("clips: {segmentCount}, style: {style}", 30, 5, "")
	if !strings.Contains(got, "{style}") {
		t.Errorf("unknown placeholder was rewritten: %q", got)
	}
}

func TestAnnotate(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Utterances: []types.Utterance{
		{Start: 0, End: 5 * time.Second, Text: "hello"},
		{Start: 65 * time.Second, End: 2 * time.Minute, Text: "second"},
	}}
	want := "[00:00:00 -> 00:00:05] hello\n[00:01:05 -> 00:02:00] second\n"
	if got := Annotate(tr); got != want {
		t.Errorf("Annotate mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Utterances: []types.Utterance{
		{Start: 0, End: 10 * time.Second, Text: "the opening line"},
	}}
	system, user := Build(tr, "", "", 12, 60*time.Second)

	if !strings.Contains(system, `"Start"`) {
		t.Errorf("system prompt missing field contract:\n%s", system)
	}
	if !strings.Contains(user, "up to 12 clips") {
		t.Errorf("user prompt missing count:\n%s", user)
	}
	if !strings.Contains(user, "at most 60 seconds") {
		t.Errorf("user prompt missing length:\n%s", user)
	}
	if !strings.Contains(user, "[00:00:00 -> 00:00:10] the opening line") {
		t.Errorf("user prompt missing annotated transcript:\n%s", user)
	}
}

func TestBuild_CustomTemplates(t *testing.T) {
	t.Parallel()

	tr := types.Transcript{Utterances: []types.Utterance{
		{Start: 0, End: time.Second, Text: "x"},
	}}
	system, user := Build(tr, "SYS", "USR {transcript}", 3, 30*time.Second)
	if system != "SYS" {
		t.Errorf("system = %q", system)
	}
	if user != "USR [00:00:00 -> 00:00:01] x\n" {
		t.Errorf("user = %q", user)
	}
}

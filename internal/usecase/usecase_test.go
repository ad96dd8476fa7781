package usecase

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/clipshear/clipshear/internal/domain/proposal"
	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/ports/adapters/fake"
	"github.com/clipshear/clipshear/internal/store"
	"github.com/clipshear/clipshear/internal/types"
)

type fakeMedia struct {
	duration   time.Duration
	audioCalls int
}

func (f *fakeMedia) ExtractAudio(ctx context.Context, videoPath, outWav string) error {
	f.audioCalls++
	return os.WriteFile(outWav, []byte("wav"), 0o644)
}

func (f *fakeMedia) ExtractClip(ctx context.Context, videoPath string, start, end time.Duration, filterGraph, outPath string) error {
	return nil
}

func (f *fakeMedia) ExtractFrame(ctx context.Context, videoPath string, at time.Duration, filterGraph string) ([]byte, error) {
	return nil, nil
}

func (f *fakeMedia) ProbeDuration(ctx context.Context, videoPath string) (time.Duration, error) {
	return f.duration, nil
}

func (f *fakeMedia) ProbeDimensions(ctx context.Context, videoPath string) (int, int, error) {
	return 1920, 1080, nil
}

type failingProposer struct{ err error }

func (p *failingProposer) ProposeSegments(context.Context, types.Transcript, ports.ProposalConfig) (string, error) {
	return "", p.err
}

type fixedProposer struct{ raw string }

func (p *fixedProposer) ProposeSegments(context.Context, types.Transcript, ports.ProposalConfig) (string, error) {
	return p.raw, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testDeps(t *testing.T) (Deps, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return Deps{
		Media:       &fakeMedia{duration: 5 * time.Minute},
		Transcriber: fake.New(),
		Proposer:    fake.New(),
		Store:       st,
		Log:         quietLogger(),
	}, dir
}

func TestAnalyze_EndToEnd(t *testing.T) {
	t.Parallel()

	deps, dir := testDeps(t)
	res, err := deps.Analyze(context.Background(), AnalyzeInput{
		VideoPath:        "/videos/talk.mp4",
		Name:             "talk",
		WorkDir:          filepath.Join(dir, "work"),
		TargetCount:      10,
		MaxSegmentLength: 60 * time.Second,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if res.Project.Status != types.ProjectSegmented {
		t.Errorf("project status = %s", res.Project.Status)
	}
	if res.Project.Duration != 5*time.Minute {
		t.Errorf("project duration = %v", res.Project.Duration)
	}
	if len(res.Segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(res.Segments))
	}
	for _, seg := range res.Segments {
		if seg.Status != types.SegmentGenerated {
			t.Errorf("segment %s status = %s", seg.ID, seg.Status)
		}
		if seg.TranscriptText == "" {
			t.Errorf("segment %s has no transcript text", seg.ID)
		}
	}

	// The fake's last proposal overruns the transcript and must come back
	// clamped to its end.
	last := res.Segments[len(res.Segments)-1]
	if last.End != 5*time.Minute {
		t.Errorf("last segment end = %v, want clamped to 5m", last.End)
	}

	// Everything is persisted, not just returned.
	stored, err := deps.Store.ListSegments(context.Background(), res.Project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 3 {
		t.Errorf("store holds %d segments", len(stored))
	}

	// The transcript is cached next to the audio.
	tr, err := LoadTranscript(res.Project.TranscriptPath)
	if err != nil {
		t.Fatalf("LoadTranscript: %v", err)
	}
	if len(tr.Utterances) == 0 {
		t.Error("cached transcript is empty")
	}
}

func TestAnalyze_ProposerFailureAbortsRun(t *testing.T) {
	t.Parallel()

	deps, dir := testDeps(t)
	provErr := ports.Errf(ports.ErrRateLimited, "openrouter", "too many requests")
	deps.Proposer = &failingProposer{err: provErr}

	_, err := deps.Analyze(context.Background(), AnalyzeInput{
		VideoPath:        "/videos/talk.mp4",
		WorkDir:          filepath.Join(dir, "work"),
		TargetCount:      5,
		MaxSegmentLength: 60 * time.Second,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind, ok := ports.KindOf(err); !ok || kind != ports.ErrRateLimited {
		t.Errorf("error kind = %v (%v), want rate_limited", kind, ok)
	}
}

func TestAnalyze_MalformedProposalAbortsRun(t *testing.T) {
	t.Parallel()

	deps, dir := testDeps(t)
	deps.Proposer = &fixedProposer{raw: "I could not find any clips, sorry."}

	_, err := deps.Analyze(context.Background(), AnalyzeInput{
		VideoPath:        "/videos/talk.mp4",
		WorkDir:          filepath.Join(dir, "work"),
		TargetCount:      5,
		MaxSegmentLength: 60 * time.Second,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var me *proposal.MalformedError
	if !errors.As(err, &me) {
		t.Errorf("error = %v, want MalformedError", err)
	}
}

func TestAnalyze_DefaultsNameToFileName(t *testing.T) {
	t.Parallel()

	deps, dir := testDeps(t)
	res, err := deps.Analyze(context.Background(), AnalyzeInput{
		VideoPath:        "/videos/keynote.mp4",
		WorkDir:          filepath.Join(dir, "work"),
		TargetCount:      5,
		MaxSegmentLength: 60 * time.Second,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Project.Name != "keynote.mp4" {
		t.Errorf("name = %q", res.Project.Name)
	}
}

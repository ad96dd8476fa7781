package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/clipshear/clipshear/internal/types"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedProject(t *testing.T, st *SQLite) *types.Project {
	t.Helper()
	p := &types.Project{
		ID:        "proj-1",
		Name:      "talk",
		VideoPath: "/videos/talk.mp4",
		Duration:  45 * time.Minute,
		Status:    types.ProjectCreated,
	}
	if err := st.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	return p
}

func seedSegment(t *testing.T, st *SQLite, id string, status types.SegmentStatus) {
	t.Helper()
	err := st.CreateSegments(context.Background(), []types.Segment{{
		ID:             id,
		ProjectID:      "proj-1",
		Start:          10 * time.Second,
		End:            40 * time.Second,
		TranscriptText: "spoken words",
		Summary:        "a moment",
		Reasoning:      "it works standalone",
		Status:         status,
	}})
	if err != nil {
		t.Fatalf("CreateSegments: %v", err)
	}
}

func TestOpen_MigrateIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	st, err := Open(path, nil)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	st.Close()

	st, err = Open(path, nil)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	st.Close()
}

func TestProjectRoundTrip(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	p := seedProject(t, st)

	got, err := st.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got == nil {
		t.Fatal("project not found")
	}
	if got.Name != p.Name || got.VideoPath != p.VideoPath || got.Duration != p.Duration {
		t.Errorf("got %+v, want %+v", got, p)
	}
	if got.Status != types.ProjectCreated {
		t.Errorf("status = %s", got.Status)
	}

	got.Status = types.ProjectTranscribed
	got.TranscriptPath = "/data/transcript.json"
	if err := st.UpdateProject(ctx, got); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	got, err = st.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.ProjectTranscribed || got.TranscriptPath != "/data/transcript.json" {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestGetProject_NotFound(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	got, err := st.GetProject(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing project, got %+v", got)
	}
}

func TestSegmentRoundTrip(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	seedProject(t, st)
	seedSegment(t, st, "seg-1", types.SegmentGenerated)

	seg, err := st.GetSegment(ctx, "seg-1")
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if seg == nil {
		t.Fatal("segment not found")
	}
	if seg.Start != 10*time.Second || seg.End != 40*time.Second {
		t.Errorf("times = %v..%v", seg.Start, seg.End)
	}
	if seg.Status != types.SegmentGenerated || seg.Summary != "a moment" {
		t.Errorf("segment = %+v", seg)
	}

	segs, err := st.ListSegments(ctx, "proj-1")
	if err != nil {
		t.Fatalf("ListSegments: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
}

func TestDeleteProject_CascadesToSegments(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	seedProject(t, st)
	seedSegment(t, st, "seg-1", types.SegmentGenerated)

	if err := st.DeleteProject(ctx, "proj-1"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	seg, err := st.GetSegment(ctx, "seg-1")
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if seg != nil {
		t.Fatalf("segment survived project deletion: %+v", seg)
	}
}

func TestSegmentLifecycle(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	seedProject(t, st)
	seedSegment(t, st, "seg-1", types.SegmentGenerated)

	if err := st.ApproveSegment(ctx, "seg-1"); err != nil {
		t.Fatalf("ApproveSegment: %v", err)
	}
	if err := st.MarkExtracting(ctx, "seg-1"); err != nil {
		t.Fatalf("MarkExtracting: %v", err)
	}
	if err := st.MarkExtracted(ctx, "seg-1", "/out/seg-1.mp4"); err != nil {
		t.Fatalf("MarkExtracted: %v", err)
	}

	seg, err := st.GetSegment(ctx, "seg-1")
	if err != nil {
		t.Fatal(err)
	}
	if seg.Status != types.SegmentExtracted || seg.ClipPath != "/out/seg-1.mp4" {
		t.Errorf("segment = %+v", seg)
	}
}

func TestSegmentFailureAndReset(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	seedProject(t, st)
	seedSegment(t, st, "seg-1", types.SegmentExtracting)

	if err := st.MarkFailed(ctx, "seg-1", "encoder exploded"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	seg, _ := st.GetSegment(ctx, "seg-1")
	if seg.Status != types.SegmentFailed || seg.FailureReason != "encoder exploded" {
		t.Fatalf("segment = %+v", seg)
	}

	if err := st.ResetSegment(ctx, "seg-1"); err != nil {
		t.Fatalf("ResetSegment: %v", err)
	}
	seg, _ = st.GetSegment(ctx, "seg-1")
	if seg.Status != types.SegmentApproved {
		t.Errorf("status after reset = %s", seg.Status)
	}
	if seg.FailureReason != "" {
		t.Errorf("failure reason not cleared: %q", seg.FailureReason)
	}
}

func TestIllegalTransitionsRejected(t *testing.T) {
	t.Parallel()

	st := openTestStore(t)
	ctx := context.Background()
	seedProject(t, st)
	seedSegment(t, st, "seg-1", types.SegmentGenerated)

	cases := []struct {
		name string
		op   func() error
	}{
		{"extract before approve", func() error { return st.MarkExtracting(ctx, "seg-1") }},
		{"complete before extracting", func() error { return st.MarkExtracted(ctx, "seg-1", "/x.mp4") }},
		{"fail before extracting", func() error { return st.MarkFailed(ctx, "seg-1", "nope") }},
		{"reset non-failed", func() error { return st.ResetSegment(ctx, "seg-1") }},
		{"approve missing", func() error { return st.ApproveSegment(ctx, "ghost") }},
	}
	for _, tc := range cases {
		if err := tc.op(); !errors.Is(err, ErrIllegalTransition) {
			t.Errorf("%s: err = %v, want ErrIllegalTransition", tc.name, err)
		}
	}

	// The segment is untouched after every rejected update.
	seg, _ := st.GetSegment(ctx, "seg-1")
	if seg.Status != types.SegmentGenerated {
		t.Errorf("status = %s, want generated", seg.Status)
	}
}

func TestOpen_SweepsInterruptedExtractions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	st, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	seedProject(t, st)
	seedSegment(t, st, "seg-1", types.SegmentExtracting)
	seedSegment(t, st, "seg-2", types.SegmentApproved)
	st.Close()

	st, err = Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	seg, err := st.GetSegment(context.Background(), "seg-1")
	if err != nil {
		t.Fatal(err)
	}
	if seg.Status != types.SegmentFailed {
		t.Errorf("interrupted segment status = %s, want failed", seg.Status)
	}
	if seg.FailureReason == "" {
		t.Error("interrupted segment has no failure reason")
	}
	seg, _ = st.GetSegment(context.Background(), "seg-2")
	if seg.Status != types.SegmentApproved {
		t.Errorf("approved segment swept: %s", seg.Status)
	}
}

// Package extract turns approved segments into clip files with bounded
// concurrency. Per-segment failures are recorded and do not stop the batch;
// only cancellation does.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/clipshear/clipshear/internal/domain/filtergraph"
	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/types"
)

// SegmentStore is the slice of persistence the extractor needs.
type SegmentStore interface {
	MarkExtracting(ctx context.Context, id string) error
	MarkExtracted(ctx context.Context, id, clipPath string) error
	MarkFailed(ctx context.Context, id, reason string) error
}

// Event reports one segment finishing, in either direction.
type Event struct {
	SegmentID string
	Status    types.SegmentStatus
	ClipPath  string
	Err       error
	Completed int
	Total     int
}

// Options configure one extraction batch.
type Options struct {
	OutDir        string
	Mode          types.AspectRatioMode
	Width         int
	Height        int
	BurnSubtitles bool
	Style         types.SubtitleStyle
	Concurrency   int
	OnProgress    func(Event)
}

// Result summarizes an extraction batch.
type Result struct {
	Extracted int
	Failed    int
	Skipped   int
}

const defaultConcurrency = 2

// Extractor encodes clips for a project's approved segments.
type Extractor struct {
	media ports.MediaTool
	store SegmentStore
	log   *logrus.Logger
}

func New(media ports.MediaTool, store SegmentStore, log *logrus.Logger) *Extractor {
	return &Extractor{media: media, store: store, log: log}
}

// Run extracts every Approved segment in segs. Segments in any other status
// are skipped. Returns an error only when the batch could not run at all or
// the context was cancelled; individual encode failures land in Result.Failed.
func (e *Extractor) Run(ctx context.Context, videoPath string, segs []*types.Segment, opts Options) (Result, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	var approved []*types.Segment
	var res Result
	for _, seg := range segs {
		if seg.Status != types.SegmentApproved {
			res.Skipped++
			continue
		}
		approved = append(approved, seg)
	}
	total := len(approved)
	if total == 0 {
		return res, nil
	}

	var mu sync.Mutex
	completed := 0
	report := func(ev Event) {
		mu.Lock()
		completed++
		ev.Completed = completed
		ev.Total = total
		switch ev.Status {
		case types.SegmentExtracted:
			res.Extracted++
		case types.SegmentFailed:
			res.Failed++
		default:
			res.Skipped++
		}
		cb := opts.OnProgress
		mu.Unlock()
		if cb != nil {
			cb(ev)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, seg := range approved {
		seg := seg
		g.Go(func() error {
			// No new encodes once the batch is cancelled.
			if err := gctx.Err(); err != nil {
				return err
			}
			clipPath, started, err := e.extractOne(gctx, videoPath, seg, opts)
			if err != nil {
				if cerr := gctx.Err(); cerr != nil {
					// The interrupted encode will not be retried by this
					// process; the segment must not stay in Extracting.
					if started {
						e.fail(seg.ID, fmt.Errorf("cancelled: %w", err))
					}
					return cerr
				}
				if !started {
					// The segment changed status under us; leave it alone.
					report(Event{SegmentID: seg.ID, Status: seg.Status, Err: err})
					return nil
				}
				e.fail(seg.ID, err)
				report(Event{SegmentID: seg.ID, Status: types.SegmentFailed, Err: err})
				return nil
			}
			report(Event{SegmentID: seg.ID, Status: types.SegmentExtracted, ClipPath: clipPath})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

// extractOne encodes one segment. started reports whether the segment made it
// into Extracting; everything after that point must resolve it to Extracted
// or Failed.
func (e *Extractor) extractOne(ctx context.Context, videoPath string, seg *types.Segment, opts Options) (clipPath string, started bool, err error) {
	if err := e.store.MarkExtracting(ctx, seg.ID); err != nil {
		return "", false, fmt.Errorf("mark extracting: %w", err)
	}

	graph := filtergraph.Build(opts.Mode, opts.Width, opts.Height)
	if opts.BurnSubtitles && seg.TranscriptText != "" {
		assPath := filepath.Join(opts.OutDir, seg.ID+".ass")
		ass := filtergraph.RenderASS(seg.TranscriptText, seg.End-seg.Start, opts.Style)
		if err := os.WriteFile(assPath, []byte(ass), 0o644); err != nil {
			return "", true, fmt.Errorf("write subtitle file: %w", err)
		}
		defer os.Remove(assPath)
		graph = graph.WithSubtitles(assPath, opts.Style)
	}

	filter := ""
	if !graph.Empty() {
		filter = graph.String()
	}

	tmpPath := filepath.Join(opts.OutDir, "."+uuid.NewString()+".mp4")
	finalPath := filepath.Join(opts.OutDir, seg.ID+".mp4")

	start := time.Now()
	if err := e.media.ExtractClip(ctx, videoPath, seg.Start, seg.End, filter, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", true, fmt.Errorf("encode clip: %w", err)
	}
	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		return "", true, fmt.Errorf("encode produced no output for segment %s", seg.ID)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", true, fmt.Errorf("move clip into place: %w", err)
	}

	if err := e.store.MarkExtracted(ctx, seg.ID, finalPath); err != nil {
		return "", true, fmt.Errorf("mark extracted: %w", err)
	}
	if e.log != nil {
		e.log.WithFields(logrus.Fields{
			"segment": seg.ID,
			"clip":    finalPath,
			"took":    time.Since(start).Round(time.Millisecond),
		}).Info("extracted clip")
	}
	return finalPath, true, nil
}

// fail records the failure with a fresh context so a cancelled batch context
// cannot lose the status update.
func (e *Extractor) fail(id string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.MarkFailed(ctx, id, cause.Error()); err != nil && e.log != nil {
		e.log.WithError(err).WithField("segment", id).Warn("failed to record segment failure")
	}
}

// Package usecase wires the ports together into the analysis flow: probe,
// transcribe, propose, normalize, persist.
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/clipshear/clipshear/internal/domain/proposal"
	"github.com/clipshear/clipshear/internal/domain/segments"
	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/store"
	"github.com/clipshear/clipshear/internal/types"
)

// Deps are the collaborators the use cases run against.
type Deps struct {
	Media       ports.MediaTool
	Transcriber ports.Transcriber
	Proposer    ports.SegmentProposer
	Store       store.Store
	Log         *logrus.Logger
}

// AnalyzeInput configures one analysis run.
type AnalyzeInput struct {
	VideoPath        string
	Name             string
	WorkDir          string
	TargetCount      int
	MaxSegmentLength time.Duration
	SystemPrompt     string
	UserPrompt       string
	OverlapThreshold float64
	Progress         ports.ProgressFunc
}

// AnalyzeResult is what an analysis run produced.
type AnalyzeResult struct {
	Project    *types.Project
	Segments   []*types.Segment
	Rejections []segments.Rejection
}

// Analyze runs the full pipeline for a new video: probes it, transcribes its
// audio, asks the proposer for segments, normalizes them against the
// transcript, and persists everything. Provider and parsing failures abort
// the whole run.
func (d Deps) Analyze(ctx context.Context, in AnalyzeInput) (*AnalyzeResult, error) {
	if in.Name == "" {
		in.Name = filepath.Base(in.VideoPath)
	}
	if err := os.MkdirAll(in.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	duration, err := d.Media.ProbeDuration(ctx, in.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("probe video duration: %w", err)
	}

	now := time.Now()
	project := &types.Project{
		ID:        uuid.NewString(),
		Name:      in.Name,
		VideoPath: in.VideoPath,
		Duration:  duration,
		Status:    types.ProjectCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.Store.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}

	log := d.Log.WithFields(logrus.Fields{"project": project.ID, "video": in.VideoPath})
	log.WithField("duration", duration.Round(time.Second)).Info("analyzing video")

	audioPath := filepath.Join(in.WorkDir, "audio.wav")
	if err := d.Media.ExtractAudio(ctx, in.VideoPath, audioPath); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}

	tr, err := d.Transcriber.Transcribe(ctx, audioPath, in.Progress)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio: %w", err)
	}
	if err := tr.Validate(); err != nil {
		return nil, fmt.Errorf("transcriber returned inconsistent transcript: %w", err)
	}
	log.WithField("utterances", len(tr.Utterances)).Info("transcription complete")

	transcriptPath := filepath.Join(in.WorkDir, "transcript.json")
	if err := writeTranscript(transcriptPath, tr); err != nil {
		return nil, err
	}
	project.TranscriptPath = transcriptPath
	project.Status = types.ProjectTranscribed
	if err := d.Store.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}

	raw, err := d.Proposer.ProposeSegments(ctx, tr, ports.ProposalConfig{
		TargetCount:      in.TargetCount,
		MaxSegmentLength: in.MaxSegmentLength,
		SystemPrompt:     in.SystemPrompt,
		UserPrompt:       in.UserPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("propose segments: %w", err)
	}

	cands, err := proposal.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse segment proposal: %w", err)
	}
	log.WithField("candidates", len(cands)).Info("proposal parsed")

	segs, rejections := segments.Normalize(tr, cands, segments.Options{
		ProjectID:        project.ID,
		OverlapThreshold: in.OverlapThreshold,
	})
	for _, r := range rejections {
		log.WithFields(logrus.Fields{
			"reason": r.Reason,
			"start":  r.Candidate.Start,
			"end":    r.Candidate.End,
		}).Warn("rejected candidate segment")
	}

	if err := d.Store.CreateSegments(ctx, segs); err != nil {
		return nil, fmt.Errorf("persist segments: %w", err)
	}
	project.Status = types.ProjectSegmented
	if err := d.Store.UpdateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	log.WithField("segments", len(segs)).Info("analysis complete")

	out := &AnalyzeResult{Project: project, Rejections: rejections}
	for i := range segs {
		out.Segments = append(out.Segments, &segs[i])
	}
	return out, nil
}

func writeTranscript(path string, tr types.Transcript) error {
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return fmt.Errorf("encode transcript: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// LoadTranscript reads a cached transcript written by Analyze.
func LoadTranscript(path string) (types.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	var tr types.Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return types.Transcript{}, fmt.Errorf("decode transcript: %w", err)
	}
	return tr, nil
}

// Package whispercpp runs a local whisper.cpp binary as the transcription
// backend. A missing binary or model file is reported as Unavailable rather
// than a hard failure so callers can suggest downloading the model.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/types"
)

const providerName = "whispercpp"

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath string, progress ports.ProgressFunc) (types.Transcript, error) {
	if _, err := os.Stat(a.model); err != nil {
		return types.Transcript{}, ports.Errf(ports.ErrUnavailable, providerName, "model not downloaded: %s", a.model)
	}
	if _, err := exec.LookPath(a.bin); err != nil {
		return types.Transcript{}, ports.Errf(ports.ErrUnavailable, providerName, "binary not found: %s", a.bin)
	}

	if progress != nil {
		progress(0)
	}

	outPrefix := filepath.Join(filepath.Dir(audioPath), "whisper")
	cmd := exec.CommandContext(ctx, a.bin,
		"-m", a.model,
		"-f", audioPath,
		"-oj",
		"-of", outPrefix,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, ports.Errf(ports.ErrUnavailable, providerName, "whisper.cpp failed: %v\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, ports.Errf(ports.ErrInvalidResponse, providerName, "read output: %v", err)
	}

	tr, err := decodeOutput(jb)
	if err != nil {
		return types.Transcript{}, ports.Errf(ports.ErrInvalidResponse, providerName, "decode output: %v", err)
	}
	if progress != nil {
		progress(1)
	}
	return tr, nil
}

// decodeOutput converts whisper.cpp -oj output into a transcript. Offsets in
// the file are milliseconds.
func decodeOutput(b []byte) (types.Transcript, error) {
	var raw struct {
		Transcription []struct {
			Offsets struct {
				From int64 `json:"from"`
				To   int64 `json:"to"`
			} `json:"offsets"`
			Text string `json:"text"`
		} `json:"transcription"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.Transcript{}, err
	}

	tr := types.Transcript{Utterances: make([]types.Utterance, 0, len(raw.Transcription))}
	for _, seg := range raw.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" || seg.Offsets.To <= seg.Offsets.From {
			continue
		}
		tr.Utterances = append(tr.Utterances, types.Utterance{
			Start: time.Duration(seg.Offsets.From) * time.Millisecond,
			End:   time.Duration(seg.Offsets.To) * time.Millisecond,
			Text:  text,
		})
	}
	if err := tr.Validate(); err != nil {
		return types.Transcript{}, fmt.Errorf("invalid transcript: %w", err)
	}
	return tr, nil
}

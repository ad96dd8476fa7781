// Package cloudspeech uploads audio to an HTTP speech-to-text service and
// converts the response into a transcript. Upload progress is reported
// through the caller's progress sink.
package cloudspeech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/types"
)

const providerName = "cloudspeech"

type Adapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func New(baseURL, apiKey string) *Adapter {
	return &Adapter{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Minute},
	}
}

// progressReader reports read fractions as the request body streams out.
type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress ports.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.progress != nil && p.total > 0 {
		frac := float64(p.read) / float64(p.total)
		if frac > 1 {
			frac = 1
		}
		p.progress(frac)
	}
	return n, err
}

func (a *Adapter) Transcribe(ctx context.Context, audioPath string, progress ports.ProgressFunc) (types.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return types.Transcript{}, fmt.Errorf("create form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return types.Transcript{}, fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return types.Transcript{}, fmt.Errorf("finish form: %w", err)
	}

	pr := &progressReader{r: &body, total: int64(body.Len()), progress: progress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/transcribe", pr)
	if err != nil {
		return types.Transcript{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.ContentLength = int64(body.Len())

	resp, err := a.client.Do(req)
	if err != nil {
		return types.Transcript{}, ports.Errf(ports.ErrNetworkFailure, providerName, "%v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.Transcript{}, ports.Errf(ports.ErrAuthenticationFailed, providerName, "status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return types.Transcript{}, ports.Errf(ports.ErrRateLimited, providerName, "status %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return types.Transcript{}, ports.Errf(ports.ErrUnavailable, providerName, "status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return types.Transcript{}, ports.Errf(ports.ErrInvalidResponse, providerName, "status %d", resp.StatusCode)
	}

	var out struct {
		Utterances []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"utterances"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.Transcript{}, ports.Errf(ports.ErrInvalidResponse, providerName, "decode response: %v", err)
	}

	tr := types.Transcript{Utterances: make([]types.Utterance, 0, len(out.Utterances))}
	for _, u := range out.Utterances {
		tr.Utterances = append(tr.Utterances, types.Utterance{
			Start: time.Duration(u.Start * float64(time.Second)),
			End:   time.Duration(u.End * float64(time.Second)),
			Text:  u.Text,
		})
	}
	if err := tr.Validate(); err != nil {
		return types.Transcript{}, ports.Errf(ports.ErrInvalidResponse, providerName, "invalid transcript: %v", err)
	}
	if progress != nil {
		progress(1)
	}
	return tr, nil
}

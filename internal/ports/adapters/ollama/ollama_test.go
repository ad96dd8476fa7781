package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clipshear/clipshear/internal/ports"
	"github.com/clipshear/clipshear/internal/types"
)

func testTranscript() types.Transcript {
	return types.Transcript{Utterances: []types.Utterance{
		{Start: 0, End: 5 * time.Second, Text: "hi"},
	}}
}

func TestProposeSegments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != false {
			t.Errorf("stream = %v, want false", body["stream"])
		}
		if body["model"] != "test-model" {
			t.Errorf("model = %v", body["model"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"content": "[]"},
		})
	}))
	defer srv.Close()

	a := New(srv.URL, "test-model")
	out, err := a.ProposeSegments(context.Background(), testTranscript(), ports.ProposalConfig{TargetCount: 3, MaxSegmentLength: 30 * time.Second})
	if err != nil {
		t.Fatalf("ProposeSegments: %v", err)
	}
	if out != "[]" {
		t.Errorf("content = %q", out)
	}
}

func TestProposeSegments_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   ports.ErrorKind
	}{
		{"model not pulled", http.StatusNotFound, `{"error":"model not found"}`, ports.ErrUnavailable},
		{"server error", http.StatusInternalServerError, "", ports.ErrUnavailable},
		{"bad request", http.StatusBadRequest, `{"error":"bad"}`, ports.ErrInvalidResponse},
		{"empty content", http.StatusOK, `{"message":{"content":"  "}}`, ports.ErrInvalidResponse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "m").ProposeSegments(context.Background(), testTranscript(), ports.ProposalConfig{TargetCount: 1, MaxSegmentLength: time.Minute})
			if kind, ok := ports.KindOf(err); !ok || kind != tc.want {
				t.Errorf("kind = %v (%v), want %v", kind, ok, tc.want)
			}
		})
	}
}

func TestProposeSegments_ServerUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL, "m").ProposeSegments(context.Background(), testTranscript(), ports.ProposalConfig{TargetCount: 1, MaxSegmentLength: time.Minute})
	if kind, ok := ports.KindOf(err); !ok || kind != ports.ErrUnavailable {
		t.Errorf("kind = %v (%v), want unavailable", kind, ok)
	}
}

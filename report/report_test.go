package report

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/use-agent/syndicate/models"
)

func sampleReport() *models.RunReport {
	return &models.RunReport{
		Timestamp:             time.Unix(1700000000, 0),
		SourceID:              "Team Updates",
		URLsCollected:         2,
		PagesCrawled:          3,
		DestinationsAttempted: 1,
		Results: []models.PostResult{
			{Platform: "twitter", Success: true, PostID: "123", Timestamp: time.Unix(1700000100, 0)},
		},
	}
}

func TestFileSink_WritesTimestampedJSON(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(filepath.Join(dir, "results"))

	if err := sink.Deliver(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	path := filepath.Join(dir, "results", "results_1700000000.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	var got models.RunReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if got.SourceID != "Team Updates" || len(got.Results) != 1 || !got.Results[0].Success {
		t.Errorf("round-tripped report = %+v", got)
	}
}

func TestWebhookSink_SignsPayload(t *testing.T) {
	secret := "s3cret"
	var gotSig string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get("X-Syndicate-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, secret)
	if err := sink.Deliver(context.Background(), sampleReport()); err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(gotBody)
	want := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	if gotSig != want {
		t.Errorf("signature = %q, want %q", gotSig, want)
	}

	var event struct {
		Type string           `json:"type"`
		Data models.RunReport `json:"data"`
	}
	if err := json.Unmarshal(gotBody, &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.Type != "run.completed" || event.Data.PagesCrawled != 3 {
		t.Errorf("event = %+v", event)
	}
}

func TestWebhookSink_CancelledContextStopsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := NewWebhookSink(srv.URL, "")
	if err := sink.Deliver(ctx, sampleReport()); err == nil {
		t.Fatal("Deliver() expected error with cancelled context")
	}
}

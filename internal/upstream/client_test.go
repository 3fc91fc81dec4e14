package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestFetchTrainDecodesPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("trainId"); got != "4012" {
			t.Errorf("unexpected trainId: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"IN_TRANSIT","trainNumber":4012,"stops":[{"eta":"14:30"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	doc, err := client.FetchTrain(context.Background(), "4012")
	if err != nil {
		t.Fatalf("fetch error: %v", err)
	}
	if doc.Status() != "IN_TRANSIT" {
		t.Fatalf("status mismatch: %s", doc.Status())
	}
	stops := doc.Stops()
	if len(stops) != 1 {
		t.Fatalf("expected 1 stop, got %d", len(stops))
	}
	if eta, ok := stops[0].TimeOfDay(); !ok || eta != "14:30" {
		t.Fatalf("eta mismatch: %s ok=%v", eta, ok)
	}
}

func TestFetchTrainRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.FetchTrain(context.Background(), "1"); err == nil {
		t.Fatalf("expected error on 502 response")
	}
}

func TestFetchTrainRejectsMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.FetchTrain(context.Background(), "1"); err == nil {
		t.Fatalf("expected error on malformed JSON")
	}
}

func TestDocumentStopsAliasedKeys(t *testing.T) {
	doc := Document{
		"trainStops": []any{
			map[string]any{"arrival": "09:15"},
			map[string]any{"time": "09:40"},
		},
	}
	stops := doc.Stops()
	if len(stops) != 2 {
		t.Fatalf("expected 2 stops, got %d", len(stops))
	}
	if eta, _ := stops[0].TimeOfDay(); eta != "09:15" {
		t.Fatalf("arrival alias not honoured: %s", eta)
	}
	if eta, _ := stops[1].TimeOfDay(); eta != "09:40" {
		t.Fatalf("time alias not honoured: %s", eta)
	}
}

func newTestClient(base string) *Client {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(base, time.Second, logger)
}

package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/rail-hub/rail-hub/internal/tracker"
	"github.com/rail-hub/rail-hub/internal/upstream"
)

type fakeService struct {
	data       map[string]upstream.Document
	fetchErr   error
	enqueued   []string
	priorities []bool
	refreshAll int
	status     tracker.Status
}

func (f *fakeService) TrainData(_ context.Context, key string) (upstream.Document, error) {
	if doc, ok := f.data[key]; ok {
		return doc, nil
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return nil, tracker.ErrUnknownTrain
}

func (f *fakeService) EnqueueRefresh(key string, priority bool) {
	f.enqueued = append(f.enqueued, key)
	f.priorities = append(f.priorities, priority)
}

func (f *fakeService) RefreshAll() int { return f.refreshAll }

func (f *fakeService) Status() tracker.Status { return f.status }

func newTestApp(t *testing.T, svc TrainService) *fiber.App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app, err := NewApp(AppOptions{Logger: logger, Service: svc, ListenPort: 5000})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app
}

func TestTrainRouteReturnsPayload(t *testing.T) {
	svc := &fakeService{data: map[string]upstream.Document{
		"4012": {"status": "IN_TRANSIT", "trainNumber": float64(4012)},
	}}
	app := newTestApp(t, svc)

	resp, err := app.Test(httptest.NewRequest("GET", "/trains/4012", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"IN_TRANSIT"`)) {
		t.Fatalf("payload missing from response: %s", string(body))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestTrainRouteRejectsNonNumericID(t *testing.T) {
	app := newTestApp(t, &fakeService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/trains/not-a-train", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestTrainRouteSurfacesUpstreamFailure(t *testing.T) {
	svc := &fakeService{fetchErr: errors.New("boom")}
	app := newTestApp(t, svc)

	resp, err := app.Test(httptest.NewRequest("GET", "/trains/77", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"upstream_error"`)) {
		t.Fatalf("expected upstream_error, got %s", string(body))
	}
}

func TestStatusRoute(t *testing.T) {
	svc := &fakeService{status: tracker.Status{TotalEntries: 3, ValidCount: 2, ExpiredCount: 1, QueueLength: 4, IsDraining: true}}
	app := newTestApp(t, svc)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/status", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, field := range []string{`"totalEntries":3`, `"queueLength":4`, `"isDraining":true`} {
		if !bytes.Contains(body, []byte(field)) {
			t.Fatalf("status payload missing %s: %s", field, string(body))
		}
	}
}

func TestRefreshRouteSingleTrain(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc)

	resp, err := app.Test(httptest.NewRequest("POST", "/-/refresh?train=520", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(svc.enqueued) != 1 || svc.enqueued[0] != "520" {
		t.Fatalf("expected 520 enqueued, got %v", svc.enqueued)
	}
	if !svc.priorities[0] {
		t.Fatalf("单趟手动刷新应为优先级入队")
	}
}

func TestRefreshRouteFullRoster(t *testing.T) {
	svc := &fakeService{refreshAll: 42}
	app := newTestApp(t, svc)

	resp, err := app.Test(httptest.NewRequest("POST", "/-/refresh", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"queued":42`)) {
		t.Fatalf("expected queued count, got %s", string(body))
	}
}

func TestRefreshRouteRejectsBadTrainParam(t *testing.T) {
	app := newTestApp(t, &fakeService{})

	resp, err := app.Test(httptest.NewRequest("POST", "/-/refresh?train=abc", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

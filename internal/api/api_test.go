package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/ntfy-go/dispatcher"
	"github.com/shaharia-lab/ntfy-go/internal/api"
	"github.com/shaharia-lab/ntfy-go/internal/scheduler"
	"github.com/shaharia-lab/ntfy-go/internal/service"
	svcmocks "github.com/shaharia-lab/ntfy-go/internal/service/mocks"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
	"github.com/shaharia-lab/ntfy-go/payload"
)

// testHarness bundles the mocks and router used by every test.
type testHarness struct {
	publishSvc *svcmocks.MockPublishService
	alertSvc   *svcmocks.MockAlertService
	router     chi.Router
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	publishSvc := new(svcmocks.MockPublishService)
	alertSvc := new(svcmocks.MockAlertService)

	srv := api.New(publishSvc, alertSvc, slog.New(slog.DiscardHandler))

	r := chi.NewRouter()
	srv.Mount(r)

	t.Cleanup(func() {
		publishSvc.AssertExpectations(t)
		alertSvc.AssertExpectations(t)
	})
	return &testHarness{publishSvc: publishSvc, alertSvc: alertSvc, router: r}
}

func (h *testHarness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	return got
}

// ---------- Publish ----------

func TestPublish(t *testing.T) {
	tests := []struct {
		name       string
		retEntry   *storage.PublishLogEntry
		retErr     error
		wantStatus int
		wantError  string
	}{
		{
			name:       "sent",
			retEntry:   &storage.PublishLogEntry{ID: "p1", Topic: "alerts", Status: storage.StatusSent},
			wantStatus: http.StatusOK,
		},
		{
			name:       "validation error",
			retErr:     &service.ValidationError{Message: "topic is required"},
			wantStatus: http.StatusBadRequest,
			wantError:  "topic is required",
		},
		{
			name:       "upstream status error",
			retEntry:   &storage.PublishLogEntry{ID: "p2", Status: storage.StatusFailed, StatusCode: 403},
			retErr:     fmt.Errorf("publishing: %w", dispatcher.ClassifyStatus(403)),
			wantStatus: http.StatusBadGateway,
			wantError:  "forbidden (status 403)",
		},
		{
			name:       "transport error",
			retEntry:   &storage.PublishLogEntry{ID: "p3", Status: storage.StatusFailed},
			retErr:     &dispatcher.TransportError{Err: errors.New("connection refused")},
			wantStatus: http.StatusBadGateway,
			wantError:  "transport: connection refused",
		},
		{
			name:       "transport timeout",
			retEntry:   &storage.PublishLogEntry{ID: "p4", Status: storage.StatusFailed},
			retErr:     &dispatcher.TransportError{Err: context.DeadlineExceeded},
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "unexpected error",
			retErr:     errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to publish",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.publishSvc.On("Publish", mock.Anything, storage.SourceAPI, mock.MatchedBy(func(p *payload.Payload) bool {
				return p.Topic == "alerts" && p.Message == "disk full"
			})).Return(tt.retEntry, tt.retErr).Once()

			req := httptest.NewRequest(http.MethodPost, "/publish",
				strings.NewReader(`{"topic":"alerts","message":"disk full"}`))
			w := h.do(req)

			assert.Equal(t, tt.wantStatus, w.Code)
			got := decodeBody(t, w)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, got["error"])
			}
			if tt.retEntry != nil && tt.wantStatus != http.StatusInternalServerError {
				assert.Equal(t, tt.retEntry.ID, got["id"])
			}
		})
	}
}

func TestPublish_DecodesFullPayload(t *testing.T) {
	h := newHarness(t)

	var captured *payload.Payload
	h.publishSvc.On("Publish", mock.Anything, storage.SourceAPI, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(2).(*payload.Payload) }).
		Return(&storage.PublishLogEntry{ID: "p1"}, nil).Once()

	body := `{
		"topic": "alerts",
		"priority": "urgent",
		"tags": ["warning"],
		"actions": [{"action": "view", "label": "Open", "url": "https://example.com"}],
		"delay": "30m"
	}`
	req := httptest.NewRequest(http.MethodPost, "/publish", strings.NewReader(body))
	req.Header.Set("Markdown", "yes")
	w := h.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, payload.PriorityMax, captured.Priority)
	assert.Equal(t, []string{"warning"}, captured.Tags)
	require.Len(t, captured.Actions, 1)
	assert.Equal(t, payload.ActionView, captured.Actions[0].Action)
	require.NotNil(t, captured.Delay)
	assert.Equal(t, "30m", captured.Delay.String())
	assert.True(t, captured.Markdown)
}

func TestPublish_DefaultPriorityAndNoMarkdown(t *testing.T) {
	h := newHarness(t)
	h.publishSvc.On("Publish", mock.Anything, storage.SourceAPI, mock.MatchedBy(func(p *payload.Payload) bool {
		return p.Priority == payload.PriorityDefault && !p.Markdown
	})).Return(&storage.PublishLogEntry{ID: "p1"}, nil).Once()

	w := h.do(httptest.NewRequest(http.MethodPost, "/publish", strings.NewReader(`{"topic":"t"}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublish_BadBody(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantError string
	}{
		{"malformed json", `{"topic":`, "invalid JSON body"},
		{"unknown priority", `{"topic":"t","priority":"extreme"}`, "unknown priority"},
		{"out of range priority", `{"topic":"t","priority":7}`, "unknown priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			w := h.do(httptest.NewRequest(http.MethodPost, "/publish", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeBody(t, w)["error"], tt.wantError)
			h.publishSvc.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// ---------- Publish log ----------

func TestListPublishLog(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantLimit int
	}{
		{"default", "", 50},
		{"explicit", "?limit=5", 5},
		{"invalid falls back", "?limit=abc", 50},
		{"negative falls back", "?limit=-1", 50},
		{"capped", "?limit=100000", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.publishSvc.On("ListLog", mock.Anything, tt.wantLimit).
				Return([]*storage.PublishLogEntry{{ID: "p1", Topic: "alerts"}}, nil).Once()

			w := h.do(httptest.NewRequest(http.MethodGet, "/publish-log"+tt.query, nil))
			require.Equal(t, http.StatusOK, w.Code)

			var got []storage.PublishLogEntry
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			require.Len(t, got, 1)
			assert.Equal(t, "alerts", got[0].Topic)
		})
	}
}

func TestListPublishLog_EmptyIsArray(t *testing.T) {
	h := newHarness(t)
	h.publishSvc.On("ListLog", mock.Anything, 50).Return(nil, nil).Once()

	w := h.do(httptest.NewRequest(http.MethodGet, "/publish-log", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestListPublishLog_Error(t *testing.T) {
	h := newHarness(t)
	h.publishSvc.On("ListLog", mock.Anything, 50).Return(nil, errors.New("db")).Once()

	w := h.do(httptest.NewRequest(http.MethodGet, "/publish-log", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ---------- Alerts ----------

func TestTestAlert(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ok", nil, http.StatusOK},
		{"not configured", &service.NotConfiguredError{Feature: "smtp"}, http.StatusNotFound},
		{"smtp failure", errors.New("auth failed"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.alertSvc.On("TestAlert", mock.Anything).Return(tt.err).Once()

			w := h.do(httptest.NewRequest(http.MethodPost, "/alerts/test", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestListAlertLog(t *testing.T) {
	h := newHarness(t)
	h.alertSvc.On("ListLog", mock.Anything, 10).
		Return([]storage.AlertLogEntry{{ID: 1, PublishID: "p1", Status: storage.StatusSent}}, nil).Once()

	w := h.do(httptest.NewRequest(http.MethodGet, "/alerts?limit=10", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got []storage.AlertLogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PublishID)
}

// ---------- Version ----------

func TestVersion(t *testing.T) {
	h := newHarness(t)
	w := h.do(httptest.NewRequest(http.MethodGet, "/version", nil))

	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody(t, w)
	assert.Equal(t, "dev", got["version"])
	assert.Contains(t, got, "go")
}

// ---------- Schedules ----------

type stubRunner struct {
	infos []scheduler.Info
	err   error
	ran   []string
}

func (r *stubRunner) List() []scheduler.Info { return r.infos }

func (r *stubRunner) RunNow(name string) error {
	r.ran = append(r.ran, name)
	return r.err
}

func newScheduleRouter(runner api.ScheduleRunner) chi.Router {
	srv := api.New(new(svcmocks.MockPublishService), new(svcmocks.MockAlertService), slog.New(slog.DiscardHandler))
	if runner != nil {
		srv.WithSchedules(runner)
	}
	r := chi.NewRouter()
	srv.Mount(r)
	return r
}

func TestListSchedules(t *testing.T) {
	runner := &stubRunner{infos: []scheduler.Info{{Name: "heartbeat", Every: "5m0s", Topic: "ops"}}}
	r := newScheduleRouter(runner)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got []scheduler.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "heartbeat", got[0].Name)
	assert.Equal(t, "ops", got[0].Topic)
}

func TestListSchedules_WithoutScheduler(t *testing.T) {
	r := newScheduleRouter(nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schedules", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestRunSchedule(t *testing.T) {
	tests := []struct {
		name       string
		runner     *stubRunner
		wantStatus int
	}{
		{"triggered", &stubRunner{}, http.StatusAccepted},
		{"unknown", &stubRunner{err: fmt.Errorf("%w: %q", scheduler.ErrNotFound, "heartbeat")}, http.StatusNotFound},
		{"failure", &stubRunner{err: errors.New("scheduler stopped")}, http.StatusInternalServerError},
		{"no scheduler", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r chi.Router
			if tt.runner != nil {
				r = newScheduleRouter(tt.runner)
			} else {
				r = newScheduleRouter(nil)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/schedules/heartbeat/run", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.runner != nil {
				assert.Equal(t, []string{"heartbeat"}, tt.runner.ran)
			}
		})
	}
}

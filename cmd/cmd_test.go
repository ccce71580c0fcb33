package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/ntfy-go/dispatcher"
	"github.com/shaharia-lab/ntfy-go/internal/config"
	"github.com/shaharia-lab/ntfy-go/payload"
)

// --- helpers ---

type ntfyStub struct {
	mu       sync.Mutex
	status   int
	bodies   []map[string]any
	authz    []string
	markdown []string
	agents   []string
	srv      *httptest.Server
}

func newNtfyStub(t *testing.T, status int) *ntfyStub {
	t.Helper()
	s := &ntfyStub{status: status}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		s.mu.Lock()
		s.bodies = append(s.bodies, body)
		s.authz = append(s.authz, r.Header.Get("Authorization"))
		s.markdown = append(s.markdown, r.Header.Get("Markdown"))
		s.agents = append(s.agents, r.Header.Get("User-Agent"))
		status := s.status
		s.mu.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"id":"msg1","event":"message"}`))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *ntfyStub) last(t *testing.T) (map[string]any, string, string) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.bodies, "no request received")
	i := len(s.bodies) - 1
	return s.bodies[i], s.authz[i], s.markdown[i]
}

func testConfig(t *testing.T, serverURL string) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		ServerURL: serverURL,
		Timeout:   5 * time.Second,
		DataDir:   t.TempDir(),
		LogLevel:  "error",
		Port:      0,
	}
}

func execute(t *testing.T, cfg *config.AppConfig, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(cfg)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--no-color"}, args...))
	err := root.Execute()
	return out.String(), err
}

// --- publish ---

func TestPublishCmd_SendsPayload(t *testing.T) {
	stub := newNtfyStub(t, http.StatusOK)
	cfg := testConfig(t, stub.srv.URL)

	out, err := execute(t, cfg, "publish",
		"--title", "Disk full",
		"--priority", "urgent",
		"--tags", "warning,skull",
		"--action", "view, Open, https://grafana.example.com",
		"--action", "http, Restart, https://api.example.com/restart, clear=true",
		"--click", "https://example.com/host/1",
		"--delay", "30m",
		"--markdown",
		"alerts", "/var is at 98%")
	require.NoError(t, err)

	body, authz, md := stub.last(t)
	assert.Equal(t, "alerts", body["topic"])
	assert.Equal(t, "/var is at 98%", body["message"])
	assert.Equal(t, "Disk full", body["title"])
	assert.EqualValues(t, 5, body["priority"])
	assert.Equal(t, []any{"warning", "skull"}, body["tags"])
	assert.Equal(t, "https://example.com/host/1", body["click"])
	assert.Equal(t, "30m", body["delay"])
	actions, ok := body["actions"].([]any)
	require.True(t, ok)
	require.Len(t, actions, 2)
	assert.Equal(t, "Open", actions[0].(map[string]any)["label"])
	assert.Equal(t, "Restart", actions[1].(map[string]any)["label"])
	assert.Equal(t, true, actions[1].(map[string]any)["clear"])
	assert.Empty(t, authz)
	assert.Equal(t, "yes", md)

	assert.Contains(t, out, "published alerts")
	assert.Contains(t, out, "priority: max")
	assert.Contains(t, out, "delay: 30m")
}

func TestPublishCmd_Async(t *testing.T) {
	stub := newNtfyStub(t, http.StatusOK)
	cfg := testConfig(t, stub.srv.URL)

	out, err := execute(t, cfg, "publish", "--async", "jobs", "done")
	require.NoError(t, err)

	body, _, _ := stub.last(t)
	assert.Equal(t, "jobs", body["topic"])
	assert.Contains(t, out, "published jobs")

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.True(t, strings.HasPrefix(stub.agents[0], "ntfy-go/dev "), stub.agents[0])
}

func TestPublishCmd_MessageFromStdin(t *testing.T) {
	stub := newNtfyStub(t, http.StatusOK)
	cfg := testConfig(t, stub.srv.URL)

	root := NewRootCmd(cfg)
	root.SetOut(io.Discard)
	root.SetIn(strings.NewReader("line one\nline two\n"))
	root.SetArgs([]string{"--no-color", "publish", "alerts", "-"})
	require.NoError(t, root.Execute())

	body, _, _ := stub.last(t)
	assert.Equal(t, "line one\nline two", body["message"])
}

func TestPublishCmd_Auth(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		token string
		want  string
	}{
		{"user flag", []string{"--user", "phil:secret"}, "", "Basic cGhpbDpzZWNyZXQ="},
		{"token from config", nil, "tk_abc", "Bearer tk_abc"},
		{"token flag", []string{"--token", "tk_flag"}, "", "Bearer tk_flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newNtfyStub(t, http.StatusOK)
			cfg := testConfig(t, stub.srv.URL)
			cfg.Token = tt.token

			args := append(append([]string{}, tt.args...), "publish", "alerts", "hi")
			_, err := execute(t, cfg, args...)
			require.NoError(t, err)

			_, authz, _ := stub.last(t)
			assert.Equal(t, tt.want, authz)
		})
	}
}

func TestPublishCmd_ServerErrorIsClassified(t *testing.T) {
	stub := newNtfyStub(t, http.StatusForbidden)
	cfg := testConfig(t, stub.srv.URL)

	_, err := execute(t, cfg, "publish", "alerts", "hi")
	require.Error(t, err)

	var statusErr *dispatcher.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestPublishCmd_InvalidInputNeverSends(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad priority", []string{"publish", "--priority", "extreme", "alerts"}},
		{"bad action", []string{"publish", "--action", "launch, Go", "alerts"}},
		{"relative click url", []string{"publish", "--click", "/relative", "alerts"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newNtfyStub(t, http.StatusOK)
			cfg := testConfig(t, stub.srv.URL)

			_, err := execute(t, cfg, tt.args...)
			require.Error(t, err)

			stub.mu.Lock()
			defer stub.mu.Unlock()
			assert.Empty(t, stub.bodies)
		})
	}
}

func TestPublishOptions_Payload(t *testing.T) {
	opts := publishOptions{
		title:    "t",
		tags:     []string{"a"},
		priority: "2",
		actions: []string{
			"http, Restart, https://api.example.com/restart, clear=true",
			"view, Open, https://example.com",
		},
		attach:   "https://example.com/f.png",
		icon:     "https://example.com/i.png",
		filename: "f.png",
		email:    "ops@example.com",
	}
	p, err := opts.payload("topic", "msg")
	require.NoError(t, err)

	assert.Equal(t, payload.PriorityLow, p.Priority)
	assert.Equal(t, "https://example.com/f.png", p.Attach)
	assert.Equal(t, "https://example.com/i.png", p.Icon)
	assert.Equal(t, "ops@example.com", p.Email)
	require.Len(t, p.Actions, 2)
	assert.Equal(t, payload.ActionHTTP, p.Actions[0].Action)
	assert.Equal(t, payload.ActionView, p.Actions[1].Action)
	assert.Nil(t, p.Delay)
	assert.NoError(t, p.Validate())
}

// --- log ---

func TestLogCmd_ShowsRecordedPublishes(t *testing.T) {
	stub := newNtfyStub(t, http.StatusOK)
	cfg := testConfig(t, stub.srv.URL)

	_, err := execute(t, cfg, "publish", "--title", "Nightly backup", "backups", "ok")
	require.NoError(t, err)

	stub.mu.Lock()
	stub.status = http.StatusTooManyRequests
	stub.mu.Unlock()
	_, err = execute(t, cfg, "publish", "backups", "again")
	require.Error(t, err)

	out, err := execute(t, cfg, "log")
	require.NoError(t, err)
	assert.Contains(t, out, "TOPIC")
	assert.Contains(t, out, "Nightly backup")
	assert.Contains(t, out, "sent")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "429")

	// Newest first.
	assert.Less(t, strings.Index(out, "failed"), strings.Index(out, "Nightly backup"))
}

func TestLogCmd_Empty(t *testing.T) {
	cfg := testConfig(t, "https://ntfy.example.com")

	out, err := execute(t, cfg, "log")
	require.NoError(t, err)
	assert.Contains(t, out, "no publishes recorded yet")
}

// --- version / update ---

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, testConfig(t, "https://ntfy.example.com"), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ntfy dev")
}

func TestCurrentVersion(t *testing.T) {
	_, err := currentVersion("dev")
	assert.Error(t, err)

	_, err = currentVersion("not-a-version")
	assert.Error(t, err)

	v, err := currentVersion("v1.4.2")
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", v.String())
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "ok? "))
	assert.False(t, confirm(strings.NewReader("\n"), &out, "ok? "))
	assert.False(t, confirm(strings.NewReader(""), &out, "ok? "))
	assert.Equal(t, "ok? ok? ok? ", out.String())
}

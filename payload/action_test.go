package payload_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/ntfy-go/payload"
)

func TestAction_JSON(t *testing.T) {
	a := payload.NewAction(payload.ActionView, "Open", mustURL(t, "https://example.com")).WithClear(true)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"view","label":"Open","url":"https://example.com","clear":true}`, string(b))
}

func TestNewAction_NilURL(t *testing.T) {
	var a payload.Action
	require.NotPanics(t, func() { a = payload.NewAction(payload.ActionView, "Open", nil) })
	assert.Empty(t, a.URL)
	assert.Error(t, a.Validate())
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantType  payload.ActionType
		wantLabel string
		wantURL   string
		wantClear *bool
		wantBody  string
	}{
		{
			name:      "view",
			in:        "view, Open portal, https://home.example.com",
			wantType:  payload.ActionView,
			wantLabel: "Open portal",
			wantURL:   "https://home.example.com",
		},
		{
			name:      "http with clear and json body",
			in:        `http, Turn down, https://api.nest.com, clear=true, body={"temp": 65, "mode": "eco"}`,
			wantType:  payload.ActionHTTP,
			wantLabel: "Turn down",
			wantURL:   "https://api.nest.com",
			wantClear: boolPtr(true),
			wantBody:  `{"temp": 65, "mode": "eco"}`,
		},
		{
			name:      "plain text body",
			in:        "HTTP, Ping, https://x.example, body=hello, world",
			wantType:  payload.ActionHTTP,
			wantLabel: "Ping",
			wantURL:   "https://x.example",
			wantBody:  `"hello, world"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := payload.ParseAction(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, a.Action)
			assert.Equal(t, tt.wantLabel, a.Label)
			assert.Equal(t, tt.wantURL, a.URL)
			assert.Equal(t, tt.wantClear, a.Clear)
			if tt.wantBody == "" {
				assert.Nil(t, a.Body)
			} else {
				assert.Equal(t, tt.wantBody, string(a.Body))
			}
		})
	}
}

func TestParseAction_Errors(t *testing.T) {
	for _, in := range []string{
		"view, only label",
		"open, Label, https://x",
		"view, Label, https://x, clear=maybe",
		"view, Label, https://x, color=red",
		"view, Label, https://x, clear",
	} {
		_, err := payload.ParseAction(in)
		assert.Error(t, err, "input %q", in)
	}
}

func boolPtr(b bool) *bool { return &b }

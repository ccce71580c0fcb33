package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ActionType selects what the client does when an action button is tapped.
type ActionType string

// Supported action types.
const (
	ActionView      ActionType = "view"
	ActionBroadcast ActionType = "broadcast"
	ActionHTTP      ActionType = "http"
)

// ParseActionType maps a case-insensitive name to an ActionType.
func ParseActionType(s string) (ActionType, error) {
	switch t := ActionType(strings.ToLower(strings.TrimSpace(s))); t {
	case ActionView, ActionBroadcast, ActionHTTP:
		return t, nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// Action is one interactive button attached to a message.
type Action struct {
	Action ActionType      `json:"action"`
	Label  string          `json:"label"`
	URL    string          `json:"url"`
	Clear  *bool           `json:"clear,omitempty"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// NewAction creates an action with the three required fields. A nil URL
// leaves the URL empty, which Validate rejects.
func NewAction(t ActionType, label string, u *url.URL) Action {
	return Action{Action: t, Label: label, URL: urlString(u)}
}

// WithClear sets whether the notification is dismissed after the action runs.
func (a Action) WithClear(clear bool) Action {
	a.Clear = &clear
	return a
}

// WithBody sets the request body for http actions.
func (a Action) WithBody(body json.RawMessage) Action {
	a.Body = body
	return a
}

// Validate checks the required fields.
func (a Action) Validate() error {
	if _, err := ParseActionType(string(a.Action)); err != nil {
		return err
	}
	if a.Label == "" {
		return errors.New("action label is required")
	}
	if err := validateURL(a.URL); err != nil {
		return fmt.Errorf("action %q: %w", a.Label, err)
	}
	return nil
}

// ParseAction parses the short action form used on the command line:
//
//	<type>, <label>, <url>[, clear=true][, body=<json or text>]
//
// Everything after "body=" is taken verbatim, commas included.
func ParseAction(s string) (Action, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 3 {
		return Action{}, fmt.Errorf("action %q: expected \"<type>, <label>, <url>\"", s)
	}

	t, err := ParseActionType(parts[0])
	if err != nil {
		return Action{}, err
	}
	u, err := url.Parse(strings.TrimSpace(parts[2]))
	if err != nil {
		return Action{}, fmt.Errorf("action %q: parsing url: %w", s, err)
	}
	a := NewAction(t, strings.TrimSpace(parts[1]), u)

	for i := 3; i < len(parts); i++ {
		key, value, ok := strings.Cut(strings.TrimSpace(parts[i]), "=")
		if !ok {
			return Action{}, fmt.Errorf("action %q: option %q is not key=value", s, parts[i])
		}
		switch key {
		case "clear":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return Action{}, fmt.Errorf("action %q: clear: %w", s, err)
			}
			a = a.WithClear(b)
		case "body":
			rest := strings.Join(append([]string{value}, parts[i+1:]...), ",")
			a = a.WithBody(rawBody(rest))
			return a, nil
		default:
			return Action{}, fmt.Errorf("action %q: unknown option %q", s, key)
		}
	}
	return a, nil
}

func rawBody(s string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	b, _ := json.Marshal(s)
	return b
}

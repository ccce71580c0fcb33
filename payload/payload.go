// Package payload describes a single notification to publish and its JSON
// wire format.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Payload is one outbound notification. Build it with New and the With*
// setters; once handed to a dispatcher it must not be modified.
type Payload struct {
	Topic    string   `json:"topic"`
	Message  string   `json:"message,omitempty"`
	Title    string   `json:"title,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Priority Priority `json:"priority"`
	Actions  []Action `json:"actions,omitempty"`
	Click    string   `json:"click,omitempty"`
	Attach   string   `json:"attach,omitempty"`
	Filename string   `json:"filename,omitempty"`
	Delay    *Delay   `json:"delay,omitempty"`
	Email    string   `json:"email,omitempty"`
	Icon     string   `json:"icon,omitempty"`

	// Markdown is sent as the "Markdown: yes" request header, never in the body.
	Markdown bool `json:"-"`
}

// New creates a payload for topic with the default priority.
func New(topic string) *Payload {
	return &Payload{Topic: topic, Priority: PriorityDefault}
}

// WithMessage sets the body text.
func (p *Payload) WithMessage(msg string) *Payload {
	p.Message = msg
	return p
}

// WithTitle sets the title.
func (p *Payload) WithTitle(title string) *Payload {
	p.Title = title
	return p
}

// WithTags replaces the tag list.
func (p *Payload) WithTags(tags ...string) *Payload {
	p.Tags = append([]string(nil), tags...)
	return p
}

// WithPriority sets the priority.
func (p *Payload) WithPriority(prio Priority) *Payload {
	p.Priority = prio
	return p
}

// WithActions replaces the action list.
func (p *Payload) WithActions(actions ...Action) *Payload {
	p.Actions = append([]Action(nil), actions...)
	return p
}

// WithClick sets the URL opened when the notification is tapped. A nil URL
// clears it, as do the other URL setters.
func (p *Payload) WithClick(u *url.URL) *Payload {
	p.Click = urlString(u)
	return p
}

// WithAttach sets the URL of an attachment.
func (p *Payload) WithAttach(u *url.URL) *Payload {
	p.Attach = urlString(u)
	return p
}

// WithIcon sets the notification icon URL.
func (p *Payload) WithIcon(u *url.URL) *Payload {
	p.Icon = urlString(u)
	return p
}

// WithFilename overrides the attachment file name.
func (p *Payload) WithFilename(name string) *Payload {
	p.Filename = name
	return p
}

// WithDelay schedules delivery.
func (p *Payload) WithDelay(d Delay) *Payload {
	p.Delay = &d
	return p
}

// WithEmail asks the server to forward the message to an e-mail address.
func (p *Payload) WithEmail(addr string) *Payload {
	p.Email = addr
	return p
}

// WithMarkdown enables markdown rendering.
// See https://docs.ntfy.sh/publish/#markdown-formatting.
func (p *Payload) WithMarkdown(markdown bool) *Payload {
	p.Markdown = markdown
	return p
}

// Validate checks that p can be published: a topic, a valid priority and
// absolute URLs wherever a URL is expected. An unset priority is valid.
func (p *Payload) Validate() error {
	if p.Topic == "" {
		return errors.New("topic is required")
	}
	if !p.Priority.OrDefault().Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownPriority, int(p.Priority))
	}
	urls := []struct{ name, raw string }{
		{"click", p.Click},
		{"attach", p.Attach},
		{"icon", p.Icon},
	}
	for _, u := range urls {
		if u.raw == "" {
			continue
		}
		if err := validateURL(u.raw); err != nil {
			return fmt.Errorf("%s: %w", u.name, err)
		}
	}
	for _, a := range p.Actions {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalJSON decodes a payload, defaulting the priority when absent.
func (p *Payload) UnmarshalJSON(data []byte) error {
	type wire Payload
	w := wire{Priority: PriorityDefault}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Payload(w)
	return nil
}

// LogValue implements slog.LogValuer for debug tracing of outgoing messages.
func (p *Payload) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("topic", p.Topic),
		slog.String("priority", p.Priority.OrDefault().String()),
	}
	if p.Title != "" {
		attrs = append(attrs, slog.String("title", p.Title))
	}
	if len(p.Tags) > 0 {
		attrs = append(attrs, slog.Any("tags", p.Tags))
	}
	if len(p.Actions) > 0 {
		attrs = append(attrs, slog.Int("actions", len(p.Actions)))
	}
	if p.Delay != nil {
		attrs = append(attrs, slog.String("delay", p.Delay.String()))
	}
	attrs = append(attrs, slog.Bool("markdown", p.Markdown))
	return slog.GroupValue(attrs...)
}

func urlString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing url: %w", err)
	}
	if !u.IsAbs() {
		return fmt.Errorf("url %q must be absolute", raw)
	}
	return nil
}

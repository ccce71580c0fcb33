package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaharia-lab/ntfy-go/payload"
)

// Schedule is one recurring publish read from the schedules file.
type Schedule struct {
	Name string `yaml:"name"`
	// Every is a Go duration ("5m", "1h"). Mutually exclusive with Cron.
	Every time.Duration `yaml:"every"`
	// Cron is a five-field cron expression.
	Cron    string          `yaml:"cron"`
	Message ScheduleMessage `yaml:"message"`
}

// ScheduleMessage is the YAML form of a payload. String values may reference
// environment variables as ${ENV:NAME}.
type ScheduleMessage struct {
	Topic    string   `yaml:"topic"`
	Message  string   `yaml:"message"`
	Title    string   `yaml:"title"`
	Tags     []string `yaml:"tags"`
	Priority string   `yaml:"priority"` // name ("high") or number ("4")
	Actions  []string `yaml:"actions"`  // short form, see payload.ParseAction
	Click    string   `yaml:"click"`
	Attach   string   `yaml:"attach"`
	Icon     string   `yaml:"icon"`
	Filename string   `yaml:"filename"`
	Delay    string   `yaml:"delay"`
	Email    string   `yaml:"email"`
	Markdown bool     `yaml:"markdown"`
}

type schedulesFile struct {
	Schedules []Schedule `yaml:"schedules"`
}

// LoadSchedules reads the schedules YAML file at filePath. A missing file
// yields no schedules (not an error). Every message is converted once here so
// that mistakes surface at startup rather than on the first run.
func LoadSchedules(filePath string) ([]Schedule, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // path is from admin-configured data dir
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading schedules %q: %w", filePath, err)
	}

	var f schedulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing schedules %q: %w", filePath, err)
	}

	seen := make(map[string]bool, len(f.Schedules))
	for i, s := range f.Schedules {
		if s.Name == "" {
			return nil, fmt.Errorf("schedule #%d: name is required", i+1)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("schedule %q: duplicate name", s.Name)
		}
		seen[s.Name] = true

		if (s.Every > 0) == (s.Cron != "") {
			return nil, fmt.Errorf("schedule %q: set exactly one of every or cron", s.Name)
		}
		if _, err := s.Message.Payload(); err != nil {
			return nil, fmt.Errorf("schedule %q: %w", s.Name, err)
		}
	}
	return f.Schedules, nil
}

// Payload converts m into a validated payload, expanding ${ENV:NAME} references.
func (m ScheduleMessage) Payload() (*payload.Payload, error) {
	fields := []*string{&m.Topic, &m.Message, &m.Title, &m.Click, &m.Attach, &m.Icon, &m.Email}
	for _, f := range fields {
		v, err := interpolateEnv(*f)
		if err != nil {
			return nil, err
		}
		*f = v
	}

	p := payload.New(m.Topic).
		WithMessage(m.Message).
		WithTitle(m.Title).
		WithFilename(m.Filename).
		WithEmail(m.Email).
		WithMarkdown(m.Markdown)
	if len(m.Tags) > 0 {
		p.WithTags(m.Tags...)
	}

	if m.Priority != "" {
		prio, err := parsePriority(m.Priority)
		if err != nil {
			return nil, err
		}
		p.WithPriority(prio)
	}

	for _, raw := range m.Actions {
		a, err := payload.ParseAction(raw)
		if err != nil {
			return nil, err
		}
		p.Actions = append(p.Actions, a)
	}

	links := []struct {
		raw string
		set func(*url.URL) *payload.Payload
	}{
		{m.Click, p.WithClick},
		{m.Attach, p.WithAttach},
		{m.Icon, p.WithIcon},
	}
	for _, l := range links {
		if l.raw == "" {
			continue
		}
		u, err := url.Parse(l.raw)
		if err != nil {
			return nil, fmt.Errorf("parsing url %q: %w", l.raw, err)
		}
		l.set(u)
	}

	if m.Delay != "" {
		p.WithDelay(payload.DelayString(m.Delay))
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// parsePriority accepts either a priority name or its number.
func parsePriority(s string) (payload.Priority, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return payload.PriorityFromInt(n)
	}
	return payload.ParsePriority(s)
}

// ParsePriorityFlag is parsePriority for command-line input.
func ParsePriorityFlag(s string) (payload.Priority, error) {
	return parsePriority(strings.TrimSpace(s))
}

// interpolateEnv replaces all ${ENV:VAR_NAME} patterns in s with the corresponding
// environment variable values. Returns an error if a referenced variable is not set.
// Substituted values are not scanned again.
func interpolateEnv(s string) (string, error) {
	const prefix = "${ENV:"
	var b strings.Builder
	rest := s
	for {
		start := strings.Index(rest, prefix)
		if start == -1 {
			break
		}
		end := strings.Index(rest[start:], "}")
		if end == -1 {
			break
		}
		end += start
		varName := rest[start+len(prefix) : end]
		value := os.Getenv(varName)
		if value == "" {
			return "", fmt.Errorf("required env var %q is not set", varName)
		}
		b.WriteString(rest[:start])
		b.WriteString(value)
		rest = rest[end+1:]
	}
	b.WriteString(rest)
	return b.String(), nil
}

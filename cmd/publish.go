package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/ntfy-go/dispatcher"
	"github.com/shaharia-lab/ntfy-go/internal/config"
	"github.com/shaharia-lab/ntfy-go/internal/logger"
	"github.com/shaharia-lab/ntfy-go/internal/service"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
	"github.com/shaharia-lab/ntfy-go/payload"
)

type publishOptions struct {
	title    string
	tags     []string
	priority string
	actions  []string
	click    string
	attach   string
	icon     string
	filename string
	delay    string
	email    string
	markdown bool
	async    bool
}

// NewPublishCmd returns the "publish" subcommand.
func NewPublishCmd(cfg *config.AppConfig) *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:     "publish <topic> [message]",
		Aliases: []string{"pub", "send"},
		Short:   "Publish a message to a topic",
		Long: `Publish a message to a topic. Pass "-" as the message to read it from stdin.

Examples:
  ntfy publish alerts "Backup finished"
  ntfy publish --title "Disk full" --priority urgent --tags warning,skull alerts "/var is at 98%"
  ntfy publish --action "view, Open dashboard, https://grafana.example.com" alerts "CPU high"
  ntfy publish --delay 30m reminders "Stand up"`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := ""
			if len(args) == 2 {
				message = args[1]
			}
			if message == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("reading message from stdin: %w", err)
				}
				message = strings.TrimRight(string(b), "\n")
			}

			p, err := opts.payload(args[0], message)
			if err != nil {
				return err
			}
			return runPublish(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, p, opts.async)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.title, "title", "T", "", "message title")
	f.StringSliceVarP(&opts.tags, "tags", "t", nil, "comma separated tags or emoji shortcodes")
	f.StringVarP(&opts.priority, "priority", "p", "", "priority: 1-5 or min, low, default, high, max/urgent")
	f.StringArrayVarP(&opts.actions, "action", "a", nil, `action button as "type, label, url[, clear=true]" (repeatable)`)
	f.StringVar(&opts.click, "click", "", "URL opened when the notification is tapped")
	f.StringVar(&opts.attach, "attach", "", "URL of a file to attach")
	f.StringVar(&opts.icon, "icon", "", "URL of the notification icon")
	f.StringVar(&opts.filename, "filename", "", "file name of the attachment")
	f.StringVar(&opts.delay, "delay", "", "deliver later: duration (30m), unix timestamp or natural language")
	f.StringVarP(&opts.email, "email", "e", "", "also forward the message to this e-mail address")
	f.BoolVar(&opts.markdown, "markdown", false, "render the message as Markdown")
	f.BoolVar(&opts.async, "async", false, "send without blocking and wait on the result")

	return cmd
}

// payload converts the flags into a message. Only parsing happens here;
// field validation is left to the publish service.
func (o publishOptions) payload(topic, message string) (*payload.Payload, error) {
	p := payload.New(topic).
		WithMessage(message).
		WithTitle(o.title).
		WithFilename(o.filename).
		WithEmail(o.email).
		WithMarkdown(o.markdown)

	if len(o.tags) > 0 {
		p.WithTags(o.tags...)
	}
	if o.priority != "" {
		prio, err := config.ParsePriorityFlag(o.priority)
		if err != nil {
			return nil, err
		}
		p.WithPriority(prio)
	}
	if len(o.actions) > 0 {
		actions := make([]payload.Action, 0, len(o.actions))
		for _, raw := range o.actions {
			a, err := payload.ParseAction(raw)
			if err != nil {
				return nil, fmt.Errorf("--action %q: %w", raw, err)
			}
			actions = append(actions, a)
		}
		p.WithActions(actions...)
	}
	for _, u := range []struct {
		flag string
		raw  string
		set  func(*url.URL) *payload.Payload
	}{
		{"click", o.click, p.WithClick},
		{"attach", o.attach, p.WithAttach},
		{"icon", o.icon, p.WithIcon},
	} {
		if u.raw == "" {
			continue
		}
		parsed, err := url.Parse(u.raw)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", u.flag, err)
		}
		u.set(parsed)
	}
	if o.delay != "" {
		p.WithDelay(payload.DelayString(o.delay))
	}
	return p, nil
}

func runPublish(ctx context.Context, out, errOut io.Writer, cfg *config.AppConfig, p *payload.Payload, async bool) error {
	// Info records repeat what is printed on out.
	level := cfg.SlogLevel()
	if level == slog.LevelInfo {
		level = slog.LevelWarn
	}
	log := logger.NewConsoleLogger(errOut, level)

	sender, err := newSender(cfg, log, async)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := service.NewPublishService(sender, storage.NewSQLitePublishStore(db), nil, nil, log)
	entry, err := svc.Publish(ctx, storage.SourceCLI, p)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, successStyle.Render("published"), entry.Topic)
	fmt.Fprintln(out, field("id", entry.ID))
	fmt.Fprintln(out, field("server", cfg.ServerURL))
	if entry.Title != "" {
		fmt.Fprintln(out, field("title", entry.Title))
	}
	fmt.Fprintln(out, field("priority", entry.Priority.String()))
	if p.Delay != nil {
		fmt.Fprintln(out, field("delay", p.Delay.String()))
	}
	return nil
}

// newSender builds the blocking dispatcher, or the non-blocking one wrapped
// so the command can still report the outcome.
func newSender(cfg *config.AppConfig, log *slog.Logger, async bool) (service.Sender, error) {
	b := cfg.DispatcherBuilder(log)
	if !async {
		d, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("creating dispatcher: %w", err)
		}
		return d, nil
	}
	d, err := b.BuildAsync()
	if err != nil {
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	return &asyncSender{dispatcher: d, logger: log}, nil
}

// asyncSender adapts an AsyncDispatcher to service.Sender by waiting on the
// returned future.
type asyncSender struct {
	dispatcher *dispatcher.AsyncDispatcher
	logger     *slog.Logger
}

func (s *asyncSender) Send(ctx context.Context, p *payload.Payload) error {
	f := s.dispatcher.Send(ctx, p)
	f.OnDone(func(err error) {
		s.logger.Debug("async send completed", "topic", p.Topic, "error", err)
	})
	return f.Wait(ctx)
}

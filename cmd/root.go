package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/ntfy-go/internal/build"
	"github.com/shaharia-lab/ntfy-go/internal/config"
)

// Execute runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	root := NewRootCmd(cfg)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), errorStyle.Render("error:"), err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Persistent flags override the
// environment configuration in cfg.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	var user string
	var noColor bool

	root := &cobra.Command{
		Use:   "ntfy",
		Short: "Publish push notifications to an ntfy server",
		Long: `ntfy publishes push notifications to an ntfy server (https://ntfy.sh or
self-hosted). Run "ntfy publish" for one-off messages or "ntfy serve" for the
HTTP relay with scheduled publishes and e-mail alerts on failure.`,
		Version:       build.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setColorProfile(cmd.OutOrStdout(), noColor)
			if cmd.Flags().Changed("user") {
				name, pass, _ := strings.Cut(user, ":")
				cfg.Username, cfg.Password = name, pass
			}
			return nil
		},
	}
	root.SetVersionTemplate("ntfy {{.Version}}\n")

	f := root.PersistentFlags()
	f.StringVar(&cfg.ServerURL, "url", cfg.ServerURL, "ntfy server URL (overrides NTFY_URL env var)")
	f.StringVar(&cfg.Token, "token", cfg.Token, "access token (overrides NTFY_TOKEN env var)")
	f.StringVarP(&user, "user", "u", "", "basic auth credentials as user[:password]")
	f.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "proxy URL, e.g. socks5h://127.0.0.1:9050 (overrides NTFY_PROXY env var)")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "request timeout, 0 disables it (overrides NTFY_TIMEOUT env var)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error (overrides LOG_LEVEL env var)")
	f.BoolVar(&noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		NewPublishCmd(cfg),
		NewLogCmd(cfg),
		NewServeCmd(cfg),
		NewVersionCmd(),
		NewUpdateCmd(),
	)
	return root
}

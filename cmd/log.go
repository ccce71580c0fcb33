package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/ntfy-go/internal/config"
	"github.com/shaharia-lab/ntfy-go/internal/storage"
)

// NewLogCmd returns the "log" subcommand that prints recent publishes.
func NewLogCmd(cfg *config.AppConfig) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent publish attempts",
		Long:  "Show recent publish attempts recorded by the CLI, the relay and the scheduler, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := storage.NewSQLitePublishStore(db).ListPublishes(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing publish log: %w", err)
			}
			renderPublishLog(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func openDatabase(cfg *config.AppConfig) (*sql.DB, error) {
	db, err := storage.NewSQLiteDB(cfg.DatabaseFile())
	if err != nil {
		return nil, fmt.Errorf("opening publish log: %w", err)
	}
	return db, nil
}

func renderPublishLog(w io.Writer, entries []*storage.PublishLogEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, labelStyle.Render("no publishes recorded yet"))
		return
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := successStyle.Render(e.Status)
		if e.Status != storage.StatusSent {
			status = errorStyle.Render(e.Status)
		}
		code := ""
		if e.StatusCode != 0 {
			code = strconv.Itoa(e.StatusCode)
		}
		rows = append(rows, []string{
			e.CreatedAt.Local().Format(time.DateTime),
			e.Topic,
			e.Title,
			e.Priority.String(),
			e.Source,
			status,
			code,
			e.ErrorMsg,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "TOPIC", "TITLE", "PRIORITY", "SOURCE", "STATUS", "CODE", "ERROR").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"coursecal/internal/export"
	appLog "coursecal/internal/log"
	"coursecal/internal/web"
	"coursecal/internal/workbook"
)

var serveFlags struct {
	sourceFlags
	listen string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the grid and a subscribable calendar over HTTP",
	Long: `Generates the artifacts, then serves /schedule.html, /calendar.ics,
/api/events and (with capture enabled) /preview.png. The artifacts are
rebuilt on the refresh schedule and whenever a local workbook changes.`,
	Example: "  coursecal serve -i schedule.xlsx -t term1 --listen :8080",
	Args:    cobra.NoArgs,
	RunE:    runServe,
}

func init() {
	serveFlags.register(serveCmd)
	serveCmd.Flags().StringVar(&serveFlags.listen, "listen", "", "HTTP listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := serveFlags.apply(cfg); err != nil {
		return err
	}
	if serveFlags.listen != "" {
		cfg.Listen = serveFlags.listen
	}
	if _, err := loadLocation(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := cfg
	srv := web.NewServer(c, func(ctx context.Context) (export.Result, error) {
		return buildArtifacts(ctx, c, c.Capture.Enabled)
	})

	var opts web.RunOptions
	if !workbook.IsRemote(c.Workbook.Source) {
		opts.WatchPath = c.Workbook.Source
	}

	appLog.Info("coursecal serving",
		"version", version,
		"listen", c.Listen,
		"term", c.Term,
		"refresh", c.RefreshCron,
		"watch", opts.WatchPath != "",
	)
	err := srv.Run(ctx, opts)
	appLog.Info("coursecal exiting")
	return err
}

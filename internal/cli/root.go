package cli

import (
	"github.com/spf13/cobra"

	"coursecal/internal/config"
	appLog "coursecal/internal/log"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfgFile string
	verbose bool

	// cfg is loaded before every command runs.
	cfg = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "coursecal",
	Short: "Turn a course schedule export into a weekly grid and a calendar feed",
	Long: `coursecal reads the course registration export (xlsx), parses each
course's meeting patterns and produces two artifacts for a term:
a printable HTML week grid and an iCalendar file with weekly recurring events.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (created with defaults if missing)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig(_ *cobra.Command, _ []string) error {
	if cfgFile == "" {
		cfg = config.DefaultConfig()
	} else {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			appLog.Error("failed to load config", err, "config_path", cfgFile)
			return err
		}
		cfg = loaded
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Debug("effective config",
		"config_path", cfgFile,
		"timezone", cfg.Timezone,
		"term", cfg.Term,
		"source", cfg.Workbook.Source,
		"output_dir", cfg.Output.Dir,
		"capture", cfg.Capture.Enabled,
	)
	return nil
}

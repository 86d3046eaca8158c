package cli

import (
	"github.com/spf13/cobra"

	"coursecal/internal/export"
)

var generateFlags struct {
	sourceFlags
	output string
	png    bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the HTML week grid and the ICS calendar for a term",
	Long: `Reads the workbook, keeps the meetings that start inside the chosen term
and writes course_calendar.html and course_calendar.ics to the output
directory. With --png the grid is also captured with headless Chromium.`,
	Example: "  coursecal generate -i schedule.xlsx -t term1 -o out/",
	Args:    cobra.NoArgs,
	RunE:    runGenerate,
}

func init() {
	generateFlags.register(generateCmd)
	generateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "", "output directory (default from config, \".\")")
	generateCmd.Flags().BoolVar(&generateFlags.png, "png", false, "also capture the grid as PNG (needs Chromium)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	if err := generateFlags.apply(cfg); err != nil {
		return err
	}
	if generateFlags.output != "" {
		cfg.Output.Dir = generateFlags.output
	}

	res, err := buildArtifacts(cmd.Context(), cfg, generateFlags.png || cfg.Capture.Enabled)
	if err != nil {
		return err
	}

	paths, err := export.WriteFiles(cfg.Output.Dir, export.Names{
		HTML: cfg.Output.HTML,
		ICS:  cfg.Output.ICS,
		PNG:  cfg.Output.PNG,
	}, res)
	if err != nil {
		return err
	}

	cmd.Printf("Generated %s calendar:\n", res.Window.Label())
	for _, p := range paths {
		cmd.Printf("  %s\n", p)
	}
	return nil
}

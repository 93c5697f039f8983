package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/s0up4200/yfscreener/filter"
)

var listPresets bool

// presetCmd represents the preset command
var presetCmd = &cobra.Command{
	Use:   "preset [names...]",
	Short: "Run presets from the config file",
	Long: `Run one or more presets defined under 'presets' in the config file.

Without arguments every preset is run. Presets execute concurrently and share
one session and one result cache; a failing preset is reported without
stopping the others.`,
	RunE: runPreset,
}

func init() {
	presetCmd.Flags().BoolVarP(&listPresets, "list", "l", false, "list configured presets and exit")
}

func runPreset(cmd *cobra.Command, args []string) error {
	if listPresets {
		for _, name := range cfg.PresetNames() {
			q, err := cfg.Presets[name].Build()
			if err != nil {
				return err
			}
			fmt.Printf("• %s\n  %s\n", name, q)
		}
		return nil
	}

	names := args
	if len(names) == 0 {
		names = cfg.PresetNames()
	}
	if len(names) == 0 {
		return fmt.Errorf("no presets configured")
	}

	queries := make(map[string]*filter.Query, len(names))
	for _, name := range names {
		criteria, ok := cfg.Presets[name]
		if !ok {
			return fmt.Errorf("preset '%s' not found in config", name)
		}
		q, err := scr.BuildQuery(criteria)
		if err != nil {
			return fmt.Errorf("invalid preset '%s': %w", name, err)
		}
		queries[name] = q
	}

	logger.Info().Strs("presets", names).Msg("Running presets")

	result, err := scr.ExecuteAll(cmd.Context(), queries)
	if err != nil {
		return err
	}

	kind, _ := parseOutputFormat(outputFormat)
	for _, name := range result.Names() {
		rows, err := refine(result.Rows[name], whereExpr)
		if err != nil {
			return err
		}
		if kind != outputJSON {
			fmt.Printf("\n%s (%d)\n", name, len(rows))
		}
		if err := render(os.Stdout, rows, kind); err != nil {
			return err
		}
	}

	for name, err := range result.Failed {
		fmt.Fprintf(os.Stderr, "✗ %s: %v\n", name, err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d presets failed", len(result.Failed), len(queries))
	}

	return nil
}

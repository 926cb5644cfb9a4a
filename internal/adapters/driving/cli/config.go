package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `View and change the settings stored in the config file.

Settings are resolved from defaults, the config file, the environment and
command flags, in that order.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Store a setting",
	Long: `Stores a single setting by its dotted key, for example:

  ragingest config set chunk.width 800
  ragingest config set embedding.provider openai`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured tools and services are usable",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}

	for _, key := range settingsService.Keys() {
		value, _ := settingsService.Value(settings, key)
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("%-32s %s\n", key, value)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return fmt.Errorf("failed to set %s: %w", args[0], err)
	}
	cmd.Printf("Set %s\n", args[0])
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return fmt.Errorf("settings service not configured")
	}
	cmd.Println(settingsService.Path())
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}

	failed := 0
	for _, check := range deps.Checks {
		if err := check.Run(cmd.Context(), settings); err != nil {
			failed++
			cmd.Printf("  x %s: %v\n", check.Name, err)
			continue
		}
		cmd.Printf("  ok %s\n", check.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(deps.Checks))
	}
	return nil
}

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and change configuration",
	Long: `Reads and changes keys in the config file. Keys use dotted table names,
for example harvest.repository_cap. A running daemon picks up changes to
harvest settings and schedule.interval without a restart.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a config value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a config value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configEditor == nil {
		return errors.New("config service not configured")
	}

	value, ok, err := configEditor.Get(args[0])
	if err != nil {
		return err
	}
	if !ok {
		p := newPrinter(cmd.OutOrStdout())
		cmd.Println(p.Muted("(not set, default applies)"))
		return nil
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configEditor == nil {
		return errors.New("config service not configured")
	}

	key, value := args[0], args[1]
	if err := configEditor.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s in %s\n", key, configEditor.Path())
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if configEditor == nil {
		return errors.New("config service not configured")
	}
	cmd.Println(configEditor.Path())
	return nil
}

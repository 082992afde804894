package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holon-run/prgen/pkg/config"
	"github.com/holon-run/prgen/pkg/logs/redact"
)

var configFileOnly bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write prgen settings",
	Long: `Read and write prgen settings.

Keys: ` + fmt.Sprint(config.Keys()) + `

Credentials are masked in output.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a key and where it came from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if configFileOnly {
			v, err := current.project.Get(key)
			if err != nil {
				return err
			}
			if config.IsSecret(key) {
				v = redact.Mask(v)
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		}

		if _, err := current.project.Get(key); err != nil {
			return err
		}
		s, err := current.resolved()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", s.Value(key), s.Sources[key])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print every effective setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := current.resolved()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
		for _, key := range config.Keys() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", key, s.Value(key), s.Sources[key])
		}
		return w.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a key to the config file; an empty value clears it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.project.Set(args[0], args[1]); err != nil {
			return err
		}
		path := configFilePath()
		if err := current.project.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %s in %s\n", args[0], path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), configFilePath())
		return nil
	},
}

// configFilePath is the loaded file, or .prgen/config.yaml in the working directory
func configFilePath() string {
	if p := current.project.Path(); p != "" {
		return p
	}
	return filepath.Join(config.ConfigDir, config.ConfigFile)
}

func init() {
	configGetCmd.Flags().BoolVar(&configFileOnly, "file", false, "Print the value stored in the config file only")

	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

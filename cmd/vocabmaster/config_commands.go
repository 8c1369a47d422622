package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hpn/vocab-master/internal/config"
)

func newConfigCommand(cc *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(cc))
	configCmd.AddCommand(newConfigSetCommand(cc))
	configCmd.AddCommand(newConfigInitCommand(cc))
	configCmd.AddCommand(newConfigPathCommand(cc))

	return configCmd
}

func newConfigShowCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cc.openStore()
			if err != nil {
				return err
			}
			cc.console(cmd).Config(store.Snapshot(), store.Path())
			return nil
		},
	}
}

func newConfigSetCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY=VALUE...",
		Short: "Validate and save one or more settings",
		Long: "Values are read as JSON when they parse as a JSON scalar, so numbers and\n" +
			"booleans keep their type; anything else is stored as a string.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseAssignments(args)
			if err != nil {
				return err
			}

			path, err := cc.configPath()
			if err != nil {
				return err
			}
			// A broken file is replaced by a valid save, so it is not an error here.
			store := config.NewStore(path, config.WithLogger(cc.logger))
			if _, err := store.Load(); err != nil {
				cc.logger.Warn("saving over unreadable configuration", "path", path, "error", err)
			}

			if _, err := store.Save(updates); err != nil {
				return err
			}

			keys := make([]string, 0, len(updates))
			for k := range updates {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			cc.console(cmd).Saved(path, keys)
			return nil
		},
	}
}

func newConfigInitCommand(cc *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file holding the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cc.configPath()
			if err != nil {
				return err
			}

			if err := config.WriteDefaults(path, overwrite); err != nil {
				if errors.Is(err, fs.ErrExist) {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", path)
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
			fmt.Fprintf(out, "Set %s (or export %s) before running an action.\n",
				config.KeyOpenAIAPIKey, config.EnvOpenAIAPIKey)
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigPathCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cc.configPath()
			if err != nil {
				return err
			}
			cc.console(cmd).Path(path)
			return nil
		},
	}
}

// parseAssignments turns KEY=VALUE arguments into an update map.
func parseAssignments(args []string) (map[string]any, error) {
	updates := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want KEY=VALUE", arg)
		}
		updates[key] = parseValue(key, raw)
	}
	return updates, nil
}

// parseValue reads raw as a JSON scalar. String keys only drop JSON quotes,
// so a numeric key or a language named "true" stays a string.
func parseValue(key, raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case string:
		return v
	case float64, bool:
		if config.IsStringKey(key) {
			return raw
		}
		return v
	default:
		return raw
	}
}

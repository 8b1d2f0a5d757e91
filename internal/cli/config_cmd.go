// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/morales-javx/javxseek/internal/config"
)

// =============================================================================
// CONFIG COMMANDS
// =============================================================================

func newConfigCommand(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration (API key redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			data, err := cfg.Redacted().Marshal(config.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(config.FormatTOML), "output format (toml, yaml, json)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := configWritePath(g.configPath)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every configuration key",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, k := range config.Keys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one configuration value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(g.configPath)
				if err != nil {
					return err
				}
				v, err := cfg.Redacted().Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set one configuration value in the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(cmd, g, args[0], args[1])
			},
		},
	)
	return cmd
}

// runConfigSet edits the file only: environment overrides are not applied,
// so an API key from the environment is never written out.
func runConfigSet(cmd *cobra.Command, g *globalFlags, key, value string) error {
	path, err := configWritePath(g.configPath)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if err := config.LoadFile(cfg, path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s updated in %s\n", key, path)
	return nil
}

// configWritePath is the existing config file, or where one would be created.
func configWritePath(explicit string) (string, error) {
	path, err := config.Resolve(explicit)
	if err != nil {
		return "", err
	}
	if path != "" {
		return path, nil
	}
	return config.DefaultPath()
}

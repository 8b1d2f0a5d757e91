// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morales-javx/javxseek/internal/export"
	"github.com/morales-javx/javxseek/internal/storage"
)

// =============================================================================
// SESSION MANAGEMENT COMMANDS
// =============================================================================

func newResetCommand(g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprintf(out, "clear session %q? (y/n) ", g.sessionID)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if !strings.EqualFold(strings.TrimSpace(answer), "y") {
					fmt.Fprintln(out, "kept")
					return nil
				}
			}

			a, err := newApp(g, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.newChat(g.sessionID).Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset %s: %w", g.sessionID, err)
			}
			fmt.Fprintf(out, "session %q cleared\n", g.sessionID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func newMemoryCommand(g *globalFlags) *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Show recent turn summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 || n > storage.MaxMemories {
				return fmt.Errorf("-n must be between 1 and %d", storage.MaxMemories)
			}

			a, err := newApp(g, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			entries := a.newChat(g.sessionID).Memories(cmd.Context(), n)
			if len(entries) == 0 {
				fmt.Fprintln(out, "our story is just beginning")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s\n", e.Time, e.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 5, "number of entries")
	return cmd
}

func newStyleCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "style",
		Short: "Show the style tier and progress toward the next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			info := a.newChat(g.sessionID).StyleInfo(cmd.Context())
			fmt.Fprintf(out, "style:    %s (%s)\n", info.Style.Label(), info.Style)
			if info.HasNext {
				fmt.Fprintf(out, "progress: %d/%d\n", info.UserCount, info.NextAt)
				fmt.Fprintf(out, "next:     %s\n", info.Next.Label())
			} else {
				fmt.Fprintf(out, "progress: %d (top tier)\n", info.UserCount)
			}
			return nil
		},
	}
}

func newSessionsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List stored session ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ids, err := a.store.Sessions(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "no stored sessions")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}
}

func newExportCommand(g *globalFlags) *cobra.Command {
	var (
		format string
		outDir string
		system bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the session as Markdown or JSON",
		Long: `export prints the session transcript to stdout, or writes it to a
file in --out. JSON output is the stored session document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.IncludeSystem = system
			exp, err := export.New(export.Format(format), opts)
			if err != nil {
				return err
			}

			a, err := newApp(g, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			sess := a.newChat(g.sessionID).Session(cmd.Context())
			out := cmd.OutOrStdout()
			if outDir == "" {
				data, err := exp.Export(sess)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			opts.OutputDir = outDir
			path, err := export.ToFile(sess, exp, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatMarkdown), "md or json")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "write a file into this directory instead of stdout")
	cmd.Flags().BoolVar(&system, "system", false, "include the system prompt")
	return cmd
}

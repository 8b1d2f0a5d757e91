// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/morales-javx/javxseek/internal/config"
	"github.com/morales-javx/javxseek/internal/model"
	"github.com/morales-javx/javxseek/internal/session"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	sessionID  string
	logLevel   string
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the javxseek command tree. Running it without a
// subcommand starts the interactive chat.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "javxseek",
		Short: "A streaming chat companion with a persistent, bounded memory",
		Long: `javxseek chats with an OpenAI-compatible completion API, streaming
replies as they arrive. Each session keeps a bounded history on disk and
its tone warms up the more you talk.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatCommand(cmd, g)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "config file (default $JAVXSEEK_HOME/config.toml)")
	pf.StringVarP(&g.sessionID, "session", "s", DefaultSessionID, "session id")
	pf.StringVar(&g.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		newChatCommand(g),
		newAskCommand(g),
		newServeCommand(g),
		newResetCommand(g),
		newMemoryCommand(g),
		newStyleCommand(g),
		newSessionsCommand(g),
		newExportCommand(g),
		newConfigCommand(g),
		newVersionCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

// =============================================================================
// CHAT
// =============================================================================

func newChatCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChatCommand(cmd, g)
		},
	}
}

func runChatCommand(cmd *cobra.Command, g *globalFlags) error {
	if !IsTTY() {
		return fmt.Errorf("chat needs an interactive terminal, use `javxseek ask` for piped input")
	}

	a, err := newApp(g, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	dir, _ := config.Dir()
	in := NewChatCLI(historyPath(dir))
	defer in.Close()

	return runChat(cmd.Context(), a, g.sessionID, in, cmd.OutOrStdout())
}

// =============================================================================
// ASK
// =============================================================================

type askFlags struct {
	mode  string
	style string
	humor bool
}

func newAskCommand(g *globalFlags) *cobra.Command {
	f := &askFlags{}
	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send one message and stream the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, g, f, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "thinking mode for this turn (deep, creative, analytical)")
	cmd.Flags().StringVar(&f.style, "style", "", "style override for this turn")
	cmd.Flags().BoolVar(&f.humor, "humor", false, "add the humor line for this turn")
	return cmd
}

func runAsk(cmd *cobra.Command, g *globalFlags, f *askFlags, message string) error {
	mode, err := turnMode(f.mode)
	if err != nil {
		return err
	}
	opts := session.TurnOptions{Mode: mode}
	if f.style != "" {
		style, ok := model.ParseStyle(f.style)
		if !ok {
			return fmt.Errorf("unknown style %q", f.style)
		}
		opts.Style = style
	}
	if cmd.Flags().Changed("humor") {
		opts.Humor = &f.humor
	}

	a, err := newApp(g, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	chat := a.newChat(g.sessionID)
	res, err := chat.Turn(ctx, message, opts, func(fragment string) {
		fmt.Fprint(out, fragment)
	})
	fmt.Fprintln(out)
	if err != nil {
		return errors.New(session.Describe(err))
	}
	if res.SaveErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), session.Describe(res.SaveErr))
	}
	return nil
}

// =============================================================================
// VERSION
// =============================================================================

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "javxseek %s\n", Version)
			fmt.Fprintf(out, "  commit:  %s\n", GitCommit)
			fmt.Fprintf(out, "  built:   %s\n", BuildDate)
			fmt.Fprintf(out, "  go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

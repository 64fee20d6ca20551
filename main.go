// © 2023 Microglot LLC
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gopkg.microglot.org/litdata/internal/schema"
)

// debugEnv turns on debug logging when set to anything but the empty string.
const debugEnv = "LITDATA_DEBUG"

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, env *environment, args []string) error
}

type commandHelp struct {
	usage   string
	summary string
	args    cobra.PositionalArgs
}

// environment is everything a command may touch outside of its flags.
type environment struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
	logger    *slog.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	env := &environment{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		lookupEnv: os.LookupEnv,
	}
	os.Exit(execute(ctx, env, os.Args[1:]))
}

func execute(ctx context.Context, env *environment, argv []string) int {
	verbose := false
	root := &cobra.Command{
		Use:           "litdata [options] COMMAND",
		Short:         "Read value literals against protobuf schemas",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug records to stderr.")
	root.PersistentPreRun = func(_ *cobra.Command, _ []string) {
		env.logger = newLogger(env, verbose)
	}
	root.SetIn(env.stdin)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)

	commands := []command{
		&cmdParse{},
		&cmdTokens{},
		&cmdTypes{},
	}
	for _, cmd := range commands {
		cmd := cmd
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			Args:  help.args,
			RunE: func(c *cobra.Command, args []string) error {
				return cmd.run(c.Context(), env, args)
			},
		}
		cmd.flags(cobraCmd.Flags())
		root.AddCommand(cobraCmd)
	}

	root.SetArgs(argv)
	if err := root.ExecuteContext(ctx); err != nil {
		report(env.stderr, err)
		return 1
	}
	return 0
}

func newLogger(env *environment, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if v, ok := env.lookupEnv(debugEnv); verbose || (ok && v != "") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(env.stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// report prints one line per exception.
func report(w io.Writer, err error) {
	var me schema.MultiException
	if errors.As(err, &me) {
		for _, e := range me {
			fmt.Fprintln(w, e.Error())
		}
		return
	}
	fmt.Fprintln(w, err.Error())
}

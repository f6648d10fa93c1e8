// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gogpu/ceed"
	_ "github.com/gogpu/ceed/backend/all"
	"github.com/gogpu/ceed/backend/wgpu"
)

const (
	envPrefix       = "CEED"
	defaultResource = "/cpu/self"
)

// newRootCommand builds the command tree writing to stdout and stderr.
func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:          "ceedinfo",
		Short:        "Inspect ceed backends and resource resolution.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := setAllConfig(v, cmd.Flags()); err != nil {
				return err
			}
			if v.GetBool("verbose") {
				l := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
				ceed.SetLogger(l)
				wgpu.SetLogger(l)
			}
			return nil
		},
	}
	rc.PersistentFlags().StringP("resource", "r", defaultResource, "Resource string to resolve.")
	rc.PersistentFlags().BoolP("verbose", "v", false, "Log backend activity to stderr.")

	rc.AddCommand(newBackendsCommand(stdout))
	rc.AddCommand(newResolveCommand(stdout))
	rc.AddCommand(newCheckCommand(stdout))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig binds flags, then fills every flag the command line left
// unset from CEED_* environment variables. Dashes in flag names become
// underscores.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		if err := f.Value.Set(v.GetString(f.Name)); err != nil {
			flagErr = fmt.Errorf("flag %s: %w", f.Name, err)
		}
	})
	return flagErr
}

// resourceArg returns the positional resource if one was given, otherwise
// the --resource flag.
func resourceArg(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return cmd.Flags().GetString("resource")
}

package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/ceed"
	"github.com/gogpu/ceed/backend/wgpu"
)

func newBackendsCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List registered backends in registration order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeBackends(stdout, ceed.Backends())
		},
	}
}

func writeBackends(w io.Writer, descs []ceed.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tMATCH\tNAME\tPRIORITY\tMEMTYPE\tDETERMINISTIC")
	for _, d := range descs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%t\n",
			d.Pattern, d.Match, d.Name, d.Priority, d.PreferredMemType, d.Deterministic)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nwgpu variants: %v\n", wgpu.Variants())
	return err
}

func newResolveCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [resource...]",
		Short: "Show which backend each resource string selects.",
		Long: `Show which backend each resource string selects.

With --verbose the resolution cache of the process-wide registry is
reported after the last resource.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				res, err := resourceArg(cmd, args)
				if err != nil {
					return err
				}
				args = []string{res}
			}
			for i, res := range args {
				if i > 0 {
					fmt.Fprintln(stdout)
				}
				if err := writeResolution(stdout, res); err != nil {
					return err
				}
			}
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				writeResolveStats(stdout, ceed.DefaultRegistry().ResolveStats())
			}
			return nil
		},
	}
}

func writeResolution(w io.Writer, res string) error {
	d, spec, err := ceed.Resolve(res)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "resource: %s\n", res)
	fmt.Fprintf(w, "backend:  %s (%s %s, priority %d)\n", d.Name, d.Match, d.Pattern, d.Priority)
	fmt.Fprintf(w, "memtype:  %s\n", d.PreferredMemType)
	params := spec.Params()
	for _, k := range slices.Sorted(maps.Keys(params)) {
		fmt.Fprintf(w, "param:    %s=%s\n", k, params[k])
	}
	return nil
}

func writeResolveStats(w io.Writer, s ceed.ResolveStats) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "\nresolve cache: %d hits, %d misses, %.0f%% hit rate\n", s.Hits, s.Misses, s.HitRate*100)
	p.Fprintf(w, "cached names:  %s\n", strings.Join(s.Recent, " "))
}

func newCheckCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [resource]",
		Short: "Initialize a backend and round-trip a vector through it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := resourceArg(cmd, args)
			if err != nil {
				return err
			}
			n, err := cmd.Flags().GetInt("length")
			if err != nil {
				return err
			}
			return runCheck(stdout, res, n)
		},
	}
	cmd.Flags().IntP("length", "n", 1024, "Vector length.")
	return cmd
}

// runCheck fills a vector with ones in the backend's preferred memory,
// reads it back on the host and verifies the sum.
func runCheck(w io.Writer, resource string, n int) (err error) {
	c, err := ceed.Init(resource)
	if err != nil {
		return err
	}
	defer func() {
		if derr := c.Destroy(); err == nil {
			err = derr
		}
	}()

	v, err := c.NewVector(n)
	if err != nil {
		return err
	}
	defer func() {
		if derr := v.Destroy(); err == nil {
			err = derr
		}
	}()

	if err := v.SetValue(1); err != nil {
		return err
	}
	if err := v.SyncArray(c.PreferredMemType()); err != nil {
		return err
	}
	a, err := v.GetArrayRead(ceed.MemHost)
	if err != nil {
		return err
	}
	var sum float64
	for _, x := range a.Host() {
		sum += x
	}
	if err := v.RestoreArray(a); err != nil {
		return err
	}

	if err := c.View(w); err != nil {
		return err
	}
	p := message.NewPrinter(language.English)
	if sum != float64(n) {
		return fmt.Errorf("check: sum of %d ones is %v", n, sum)
	}
	_, err = p.Fprintf(w, "check: ok, %d values, sum %.1f\n", n, sum)
	return err
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nickandperla.net/cbs/pkg/cbs"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>...",
		Short: "Report malformed tags and unknown commands without evaluating",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			total := 0
			for _, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				problems := rt.Check(string(src))
				for _, p := range problems {
					fmt.Fprintf(cmd.OutOrStdout(), "%s:%s\n", path, p)
				}
				total += len(problems)
			}
			if total > 0 {
				return fmt.Errorf("%d problem(s) found", total)
			}
			return nil
		},
	}
}

func newVarsCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "vars [template]",
		Short: "List the variables a template reads and writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := templateSource(cmd, args)
			if err != nil {
				return err
			}
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()
			return printVars(cmd, format, rt.ExtractVariables(src))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text or yaml")
	return cmd
}

func printVars(cmd *cobra.Command, format string, refs []cbs.VarRef) error {
	switch format {
	case "yaml":
		if refs == nil {
			refs = []cbs.VarRef{}
		}
		return yaml.NewEncoder(cmd.OutOrStdout()).Encode(refs)
	case "text", "":
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCOPE\tOP\tNAME")
		for _, r := range refs {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Scope, r.Op, r.Name)
		}
		return tw.Flush()
	}
	return fmt.Errorf("unknown output format %q (use text or yaml)", format)
}

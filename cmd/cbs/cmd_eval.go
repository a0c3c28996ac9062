package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nickandperla.net/cbs/pkg/cbs"
)

// outputOptions are shared by commands that print results.
type outputOptions struct {
	format string // text or yaml
	trace  bool
	strict bool
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "o", "text", "Output format: text or yaml")
	cmd.Flags().BoolVar(&o.trace, "trace", false, "Print every resolved tag to stderr")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Exit with an error when evaluation reports errors")
}

func newEvalCmd(a *app) *cobra.Command {
	var out outputOptions
	cmd := &cobra.Command{
		Use:   "eval [template]",
		Short: "Evaluate a template given as arguments or on stdin",
		Example: `  cbs eval '{{setvar::hp::10}}{{getvar::hp}}'
  echo '{{calc::2+3}}' | cbs eval`,
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

			ctx, err := a.context(rt)
			if err != nil {
				return err
			}
			res := rt.Evaluate(src, ctx)
			if err := a.save(rt, res); err != nil {
				return err
			}
			return out.print(cmd, "", res)
		},
	}
	out.register(cmd)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var out outputOptions
	cmd := &cobra.Command{
		Use:   "run <file>...",
		Short: "Evaluate template files",
		Long: `Evaluate one or more template files.

Without a session the files render concurrently, each against its own copy
of the context. With a session they run in order and each one sees the
variables the previous one saved.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()

			if a.cfg.Session.ID != "" {
				return a.runSequential(cmd, rt, &out, args)
			}

			jobs := make([]cbs.Job, len(args))
			base := a.cfg.Context()
			for i, path := range args {
				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				jobs[i] = cbs.Job{ID: path, Source: string(src), Context: base, Isolate: true}
			}
			rendered, err := rt.RenderAll(cmd.Context(), jobs)
			if err != nil {
				return err
			}
			var failed error
			for _, r := range rendered {
				if err := out.print(cmd, header(args, r.ID), r.Result); err != nil && failed == nil {
					failed = err
				}
			}
			return failed
		},
	}
	out.register(cmd)
	return cmd
}

func (a *app) runSequential(cmd *cobra.Command, rt *cbs.Runtime, out *outputOptions, paths []string) error {
	for _, path := range paths {
		ctx, err := a.context(rt)
		if err != nil {
			return err
		}
		res, err := rt.EvaluateFile(path, ctx)
		if err != nil {
			return err
		}
		if err := a.save(rt, res); err != nil {
			return err
		}
		if err := out.print(cmd, header(paths, path), res); err != nil {
			return err
		}
	}
	return nil
}

// header labels output only when there is more than one file.
func header(paths []string, path string) string {
	if len(paths) < 2 {
		return ""
	}
	return path
}

// templateSource joins args, or reads stdin when there are none or the only
// argument is "-".
func templateSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return strings.TrimSuffix(string(data), "\n"), nil
	}
	return strings.Join(args, " "), nil
}

type resultView struct {
	File       string            `yaml:"file,omitempty"`
	Output     string            `yaml:"output"`
	ChatVars   map[string]string `yaml:"chat_vars,omitempty"`
	GlobalVars map[string]string `yaml:"global_vars,omitempty"`
	Errors     []errorView       `yaml:"errors,omitempty"`
}

type errorView struct {
	Severity string `yaml:"severity"`
	Command  string `yaml:"command,omitempty"`
	Message  string `yaml:"message"`
	Start    int    `yaml:"start"`
}

func (o *outputOptions) print(cmd *cobra.Command, file string, res *cbs.Result) error {
	w := cmd.OutOrStdout()
	switch o.format {
	case "yaml":
		view := resultView{
			File:       file,
			Output:     res.Output,
			ChatVars:   res.ChatVars,
			GlobalVars: res.GlobalVars,
		}
		for _, e := range res.Errors {
			view.Errors = append(view.Errors, errorView{
				Severity: e.Severity.String(),
				Command:  e.Command,
				Message:  e.Message,
				Start:    e.Span.Start,
			})
		}
		if file != "" {
			fmt.Fprintln(w, "---")
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	case "text", "":
		if file != "" {
			fmt.Fprintf(w, "==> %s <==\n", file)
		}
		fmt.Fprintln(w, res.Output)
		for _, e := range res.Errors {
			fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
		}
	default:
		return fmt.Errorf("unknown output format %q (use text or yaml)", o.format)
	}

	if o.trace {
		for _, step := range res.Trace {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s -> %q (%s)\n", step.Original, step.Resolved, step.Duration)
		}
	}
	if o.strict && len(res.Failures()) > 0 {
		return fmt.Errorf("%d evaluation error(s)", len(res.Failures()))
	}
	return nil
}

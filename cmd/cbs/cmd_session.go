package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"nickandperla.net/cbs/pkg/cbs"
)

var errNoDB = errors.New("session commands need a database (--db, CBS_DB or session.db)")

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage stored sessions",
		Long: `List and manage sessions stored in the --db database.

Subcommands:
  new      - Create a session and print its ID
  list     - List stored sessions
  show     - Print a session's variables
  history  - Print a session's recorded evaluations
  delete   - Delete a session and its history`,
	}

	// withRuntime opens the database-backed runtime for a subcommand.
	withRuntime := func(run func(cmd *cobra.Command, rt *cbs.Runtime, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if a.cfg.Session.DB == "" {
				return errNoDB
			}
			rt, err := a.runtime()
			if err != nil {
				return err
			}
			defer rt.Close()
			return run(cmd, rt, args)
		}
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session and print its ID",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(cmd *cobra.Command, rt *cbs.Runtime, _ []string) error {
			id, err := rt.NewSession()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		}),
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, oldest first",
		Args:  cobra.NoArgs,
		RunE: withRuntime(func(cmd *cobra.Command, rt *cbs.Runtime, _ []string) error {
			ids, err := rt.Sessions()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}),
	}

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Print a session's chat and global variables as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, rt *cbs.Runtime, args []string) error {
			ctx := cbs.NewContext()
			if err := rt.LoadSession(args[0], ctx); err != nil {
				return err
			}
			return yaml.NewEncoder(cmd.OutOrStdout()).Encode(map[string]map[string]string{
				"chat_vars":   ctx.ChatVars,
				"global_vars": ctx.GlobalVars,
			})
		}),
	}

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print a session's recorded evaluations, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, rt *cbs.Runtime, args []string) error {
			snaps, err := rt.History(args[0], limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, s := range snaps {
				fmt.Fprintf(w, "#%d %s\n", s.Version, s.Ts.Local().Format(time.DateTime))
				fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(s.Output, "\n", "\n  "))
				for _, e := range s.Errors {
					fmt.Fprintf(w, "  ! %s\n", e)
				}
			}
			return nil
		}),
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of entries to show (0 for all)")

	deleteCmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its history",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(func(cmd *cobra.Command, rt *cbs.Runtime, args []string) error {
			return rt.DeleteSession(args[0])
		}),
	}

	cmd.AddCommand(newCmd, listCmd, showCmd, historyCmd, deleteCmd)
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCommentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Manage progress notes on a job",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <job-id> <text>...",
			Short: "Add a note",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.engine.AddComment(cmd.Context(), args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added note %s\n", c.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "edit <job-id> <comment-id> <text>...",
			Short: "Replace a note's text",
			Args:  cobra.MinimumNArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := a.engine.UpdateComment(cmd.Context(), args[0], args[1], strings.Join(args[2:], " ")); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Note updated.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "rm <job-id> <comment-id>",
			Short: "Delete a note",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := a.engine.DeleteComment(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Note deleted.")
				return nil
			},
		},
	)
	return cmd
}

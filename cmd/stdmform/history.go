package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		form    string
		outcome string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent form submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			events, err := a.client.listEvents(form, outcome, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(events))
			for _, e := range events {
				record := e.RecordID
				if record == "" {
					record = "-"
				}
				problems := strings.ReplaceAll(e.Errors, "\n", "; ")
				rows = append(rows, []string{
					e.CreatedAt.Format(time.RFC3339), e.Form, e.Mode, record, e.Outcome, truncate(problems, 60),
				})
			}
			return printOutput(a.out, format, events, []string{"Time", "Form", "Mode", "Record", "Outcome", "Errors"}, rows)
		},
	}
	cmd.Flags().StringVar(&form, "form", "", "Only submissions of this form")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Only this outcome: saved, rejected or failed")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of submissions (server default when zero)")
	return cmd
}

package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gltn/stdm/pkg/formserver"
)

// addValueFlag registers the repeatable --set attribute=value flag.
func addValueFlag(fs *pflag.FlagSet, dst *[]string) {
	fs.StringArrayVar(dst, "set", nil, "Field value as attribute=value (repeatable)")
}

func parseValues(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --set %q: want attribute=value", p)
		}
		values[k] = v
	}
	return values, nil
}

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <form> <id>",
		Short: "Show a stored record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			rec, err := a.client.getRecord(args[0], args[1])
			if err != nil {
				return err
			}
			return printOutput(a.out, format, rec, []string{"Attribute", "Value"}, recordRows(rec))
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var (
		pairs      []string
		saveAndNew bool
	)
	cmd := &cobra.Command{
		Use:   "create <form>",
		Short: "Save a new record through a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(pairs)
			if err != nil {
				return err
			}
			req := formserver.SubmitRequest{Values: values, SaveAndNew: saveAndNew}
			return a.runSubmit(http.MethodPost, recordPath(args[0], ""), req)
		},
	}
	addValueFlag(cmd.Flags(), &pairs)
	cmd.Flags().BoolVar(&saveAndNew, "save-and-new", false, "Save without the confirmation message")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "update <form> <id>",
		Short: "Change a stored record through a form",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(pairs)
			if err != nil {
				return err
			}
			return a.runSubmit(http.MethodPut, recordPath(args[0], args[1]), formserver.SubmitRequest{Values: values})
		},
	}
	addValueFlag(cmd.Flags(), &pairs)
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "validate <form>",
		Short: "Check values against a form without saving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseValues(pairs)
			if err != nil {
				return err
			}
			return a.runSubmit(http.MethodPost, validatePath(args[0]), formserver.SubmitRequest{Values: values})
		},
	}
	addValueFlag(cmd.Flags(), &pairs)
	return cmd
}

// runSubmit sends a submission and prints the outcome. A rejected
// submission prints its messages and returns an error.
func (a *app) runSubmit(method, path string, req formserver.SubmitRequest) error {
	format, err := a.format()
	if err != nil {
		return err
	}
	resp, err := a.client.submit(method, path, req)
	if err != nil {
		return err
	}

	if format != outputTable {
		if err := printOutput(a.out, format, resp, nil, nil); err != nil {
			return err
		}
	} else if err := printSubmitTable(a, resp); err != nil {
		return err
	}
	if !resp.Valid {
		return fmt.Errorf("form rejected: %d problem(s)", len(resp.Errors))
	}
	return nil
}

func printSubmitTable(a *app, resp *formserver.SubmitResponse) error {
	var rows [][]string
	for _, n := range resp.Notifications {
		rows = append(rows, []string{n.Severity.String(), n.Message})
	}
	for _, d := range resp.Messages {
		rows = append(rows, []string{"info", d.Title + ": " + d.Message})
	}
	for _, d := range resp.Failures {
		rows = append(rows, []string{"critical", d.Title + ": " + strings.ReplaceAll(d.Message, "\n", " ")})
	}
	if len(rows) > 0 {
		if err := printTable(a.out, []string{"Severity", "Message"}, rows); err != nil {
			return err
		}
	}
	if rec, ok := resp.Record.(map[string]any); ok {
		if len(rows) > 0 {
			fmt.Fprintln(a.out)
		}
		return printTable(a.out, []string{"Attribute", "Value"}, recordRows(rec))
	}
	return nil
}

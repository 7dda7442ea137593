package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gltn/stdm/pkg/entities"
	"github.com/gltn/stdm/pkg/formdef"
	"github.com/gltn/stdm/pkg/record"
	"github.com/gltn/stdm/pkg/schema"
)

func newFormsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "forms",
		Short: "List the forms served",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			forms, err := a.client.listForms()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(forms))
			for _, f := range forms {
				rows = append(rows, []string{f.Name, f.Entity, truncate(f.Title, 40), strconv.Itoa(f.Fields)})
			}
			return printOutput(a.out, format, forms, []string{"Name", "Entity", "Title", "Fields"}, rows)
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <form>",
		Short: "Show the fields of a form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			d, err := a.client.getForm(args[0])
			if err != nil {
				return err
			}
			return printOutput(a.out, format, d, []string{"Attribute", "Control", "Label", "Mandatory", "Preload"}, fieldRows(d.Fields))
		},
	}
}

func fieldRows(fields []formdef.Field) [][]string {
	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		label := f.Label
		if label == "" {
			label = "-"
		}
		preload := f.Preload
		if preload == "" {
			preload = "-"
		}
		rows = append(rows, []string{f.Attribute, string(f.Control), label, yesNo(f.Mandatory), preload})
	}
	return rows
}

// offlineStore lets forms be built without a database. It never finds a
// value taken and refuses to save.
type offlineStore struct{}

var errOffline = errors.New("no database in offline mode")

func (offlineStore) Create(context.Context, any) error { return errOffline }
func (offlineStore) Update(context.Context, any) error { return errOffline }

func (offlineStore) ValueTaken(context.Context, record.UniqueLookup) (bool, error) {
	return false, nil
}

func newCheckCmd(a *app) *cobra.Command {
	var overrides string
	cmd := &cobra.Command{
		Use:   "check <definitions>",
		Short: "Check a form definition file without a server",
		Long: `check loads a YAML or HCL definition file and builds every form in it
against the built-in entities, reporting fields whose attribute or
control cannot be bound.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := a.format()
			if err != nil {
				return err
			}
			reg := schema.NewRegistry(nil)
			if err := entities.Register(reg); err != nil {
				return err
			}
			if overrides != "" {
				o, err := schema.LoadOverrides(overrides)
				if err != nil {
					return err
				}
				if err := reg.ApplyOverrides(o); err != nil {
					return err
				}
			}
			set, err := formdef.Load(args[0])
			if err != nil {
				return err
			}

			type result struct {
				Form   string `json:"form" yaml:"form"`
				Entity string `json:"entity" yaml:"entity"`
				Fields int    `json:"fields" yaml:"fields"`
				Error  string `json:"error,omitempty" yaml:"error,omitempty"`
			}
			var (
				results []result
				rows    [][]string
				failed  int
			)
			for _, d := range set.Definitions() {
				r := result{Form: d.Name, Entity: d.Entity, Fields: len(d.Fields)}
				if _, _, err := set.NewForm(d.Name, reg, nil, offlineStore{}); err != nil {
					r.Error = err.Error()
					failed++
				}
				status := "ok"
				if r.Error != "" {
					status = r.Error
				}
				results = append(results, r)
				rows = append(rows, []string{r.Form, r.Entity, strconv.Itoa(r.Fields), status})
			}
			if err := printOutput(a.out, format, results, []string{"Form", "Entity", "Fields", "Status"}, rows); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d forms failed to build", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&overrides, "overrides", "", "Schema override file to apply first")
	return cmd
}

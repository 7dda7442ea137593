// Package main provides stdmform, a command-line client for the form server.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gltn/stdm/pkg/logging"
)

var version = "dev"

// app holds the global flags and the client shared by every command.
type app struct {
	serverURL string
	output    string
	verbose   bool

	out     io.Writer
	client  *formClient
	closeFn func()
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}
	root := &cobra.Command{
		Use:   "stdmform",
		Short: "Fill and submit STDM data entry forms",
		Long: `stdmform talks to the form server. It lists the configured forms,
validates values against a form and saves records through it, applying
the same unique and mandatory checks as the data entry screens.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if a.verbose {
				level = "debug"
			}
			logger, closeFn, err := logging.New(level, false)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			a.closeFn = closeFn
			a.client = newFormClient(a.serverURL, logger)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.closeFn != nil {
				a.closeFn()
			}
		},
	}
	root.SetOut(out)

	root.PersistentFlags().StringVar(&a.serverURL, "server", "http://localhost:8080", "Form server URL")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format: table, json, yaml, dump")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log requests to stderr")

	root.AddCommand(newFormsCmd(a))
	root.AddCommand(newShowCmd(a))
	root.AddCommand(newCheckCmd(a))
	root.AddCommand(newGetCmd(a))
	root.AddCommand(newCreateCmd(a))
	root.AddCommand(newUpdateCmd(a))
	root.AddCommand(newValidateCmd(a))
	root.AddCommand(newHistoryCmd(a))
	return root
}

func (a *app) format() (outputFormat, error) { return parseOutputFormat(a.output) }

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// formClient wraps an HTTP client and the server base URL.
type formClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func newFormClient(baseURL string, logger *slog.Logger) *formClient {
	return &formClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

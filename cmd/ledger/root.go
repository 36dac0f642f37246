package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"expensetracker/internal/backend"
	"expensetracker/internal/cli"
	"expensetracker/internal/log"
	"expensetracker/internal/menu"
	"expensetracker/internal/services"
)

// app carries what every command needs once the root pre-run has opened the ledger.
type app struct {
	verbose bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	logger  *log.Logger
	ledger  *services.Ledger
	cleanup backend.CleanupFunc
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	a := &app{in: in, out: out, errOut: errOut}
	defer a.close()

	if args == nil {
		// cobra falls back to os.Args on a nil slice.
		args = []string{}
	}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Record expenses and report on them",
		Long: `ledger records personal expenses in a local database.
Run without a subcommand to start the interactive menu.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.open,
		RunE: func(cmd *cobra.Command, args []string) error {
			return menu.New(a.ledger, a.in, a.out).Run(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newAddCmd(a),
		newSummaryCmd(a),
		newChartCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newClearCmd(a),
	)
	return root
}

// open loads configuration, sets up logging on stderr and opens the ledger.
func (a *app) open(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	a.logger = cli.SetupLogger(level, a.errOut, log.ComponentApp)

	ledger, cleanup, err := cli.OpenLedger(cmd.Context(), cfg, a.logger)
	if err != nil {
		return err
	}
	a.ledger, a.cleanup = ledger, cleanup
	a.logger.Debug("Ledger opened", log.FieldBackend, cfg.DataBackend, "command", cmd.Name())
	return nil
}

func (a *app) close() {
	if a.cleanup == nil {
		return
	}
	if err := a.cleanup(); err != nil {
		a.logger.Error("Failed to close ledger", log.FieldError, err)
	}
	a.cleanup = nil
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/horizonip/Disk-Migration-Tool/internal/schema"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func newRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "dsplit",
		Short:         "Split a folder across several destination volumes by free space",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.Setup(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.flags.configPath, "config", "", "settings file (default /etc/dsplit/dsplit.env if present)")
	flags.StringVar(&app.flags.cpuprofile, "cpuprofile", "", "write cpu profile to file")
	flags.StringVar(&app.flags.memprofile, "memprofile", "", "write memory profile to this file")
	flags.StringVar(&app.flags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newVolumesCommand(app),
		newPlanCommand(app),
		newRunCommand(app),
		newLedgerCommand(app),
	)

	return root
}

func newVolumesCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "volumes <root>...",
		Short: "Show identity and capacity of destination roots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd
			fmt.Fprintln(w, "ID\tROOT\tFREE\tTOTAL")

			for _, root := range args {
				vol, err := app.fsHandler.Volume(root, "")
				if err != nil {
					return fmt.Errorf("(cmd-volumes) %w", err)
				}

				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", vol.ID(), vol.RootPath,
					humanize.IBytes(vol.FreeBytes), humanize.IBytes(vol.TotalBytes))
			}

			return w.Flush() //nolint:wrapcheck
		},
	}
}

// addPlanFlags binds the flags shared by the plan and run commands.
func addPlanFlags(cmd *cobra.Command, opts *planOptions, budget *string) {
	cmd.Flags().StringArrayVar(&opts.excludes, "exclude", nil, "exclude pattern relative to the source (doublestar syntax, repeatable)")
	cmd.Flags().StringVar(budget, "budget", "", "only select files up to this total size (e.g. 500GiB)")
	cmd.Flags().BoolVar(&opts.skipExisting, "skip-existing", false, "skip files already present on a destination")
}

func parseBudget(budget string, opts *planOptions) error {
	if budget == "" {
		return nil
	}

	bytes, err := humanize.ParseBytes(budget)
	if err != nil {
		return fmt.Errorf("(cmd-budget) %w", err)
	}
	opts.budget = bytes

	return nil
}

func newPlanCommand(app *App) *cobra.Command {
	var opts planOptions
	var budget string

	cmd := &cobra.Command{
		Use:   "plan <source> <dest-root>...",
		Short: "Show how the source would be split across the destinations",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parseBudget(budget, &opts); err != nil {
				return err
			}

			p, err := app.buildPlan(cmd.Context(), args[0], args[1:], opts)
			if err != nil {
				return err
			}

			return printPlan(cmd, p)
		},
	}
	addPlanFlags(cmd, &opts, &budget)

	return cmd
}

func printPlan(cmd *cobra.Command, p *plan) error {
	a := p.assignment

	fmt.Fprintf(cmd.OutOrStdout(), "Source: %s\nLedger: %s (%d entries)\n\n", p.source, p.ledgerPath, p.ledger.Len())

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0) //nolint:mnd
	fmt.Fprintln(w, "DEST\tROOT\tFILES\tASSIGNED\tFREE")

	for idx, vol := range p.volumes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", vol.ID(), vol.RootPath,
			a.AssignedCount(idx), humanize.IBytes(a.AssignedBytes(idx)), humanize.IBytes(vol.FreeBytes))
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("(cmd-plan) %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nAssigned: %s\nAlready transferred: %d files (%s)\nUnassigned: %d files (%s)\n",
		humanize.IBytes(a.TotalBytes()),
		a.SkippedCount(), humanize.IBytes(a.SkippedBytes()),
		a.UnassignedCount(), humanize.IBytes(a.UnassignedBytes()),
	)

	return nil
}

func newRunCommand(app *App) *cobra.Command {
	var opts planOptions
	var runOpts runOptions
	var budget string

	cmd := &cobra.Command{
		Use:   "run <source> <dest-root>...",
		Short: "Split the source across the destinations",
		Args:  cobra.MinimumNArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := parseBudget(budget, &opts); err != nil {
				return err
			}

			if !cmd.Flags().Changed("move") {
				runOpts.move = app.settings.Mode == schema.ModeMove
			}

			if !cmd.Flags().Changed("verify") {
				runOpts.verify = app.settings.Verify
			}

			p, err := app.buildPlan(cmd.Context(), args[0], args[1:], opts)
			if err != nil {
				return err
			}

			return app.runPlan(cmd, p, runOpts)
		},
	}
	addPlanFlags(cmd, &opts, &budget)

	cmd.Flags().BoolVar(&runOpts.move, "move", false, "remove the source files after the transfer")
	cmd.Flags().BoolVar(&runOpts.verify, "verify", true, "compare moved files before removing the source")
	cmd.Flags().BoolVar(&runOpts.ui, "ui", isatty.IsTerminal(os.Stdout.Fd()), "show the terminal user interface")

	return cmd
}

func newLedgerCommand(app *App) *cobra.Command {
	var showEntries bool

	cmd := &cobra.Command{
		Use:   "ledger <source>",
		Short: "Show the transfer ledger of a source folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.printLedger(cmd, args[0], showEntries)
		},
	}
	cmd.Flags().BoolVar(&showEntries, "entries", false, "list every ledger entry")

	return cmd
}

package main

import (
	"fmt"
	"os"
	"strconv"

	"sc-go/internal/app"
	"sc-go/internal/sc"
	"sc-go/internal/ui"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var verbose bool

// newApp reads the config and creates an SCApp. The caller must defer app.Close().
// command identifies the CLI command being run (e.g. "clean", "restore").
func newApp(command string) (*app.SCApp, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewSCApp(cfg, command, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// styler colors stdout when it is a terminal.
func styler() ui.Styler {
	return ui.NewStyler(os.Stdout)
}

// applySafetyFlag overrides the configured maximum safety level for this run.
func applySafetyFlag(cmd *cobra.Command, a *app.SCApp) error {
	raw, _ := cmd.Flags().GetString("safety")
	if raw == "" {
		return nil
	}
	level, err := sc.ParseSafetyLevel(raw)
	if err != nil {
		return err
	}
	return a.SetSafetyLevel(level)
}

func parseOperationID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid operation id %q", s)
	}
	return id, nil
}

var rootCmd = &cobra.Command{
	Use:           "sc",
	Short:         "Disk cleaner with undo",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent clean operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("list")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No clean operations recorded.")
			return nil
		}
		ui.OperationsTable(os.Stdout, styler(), ops)
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a clean operation and its undo items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseOperationID(args[0])
		if err != nil {
			return err
		}

		a, err := newApp("show")
		if err != nil {
			return err
		}
		defer a.Close()

		op, items, err := a.Operation(id)
		if err != nil {
			return err
		}

		s := styler()
		fmt.Printf("%s #%d  %s  %s\n", s.Title("Operation"), op.ID, op.PluginName,
			op.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Items: %d  Freed: %s\n", op.ItemsCount, sc.HumanSize(op.SizeFreed))
		if op.ErrorMessage.Valid {
			fmt.Printf("Error: %s\n", op.ErrorMessage.String)
		}
		fmt.Println()
		if len(items) == 0 {
			fmt.Println("No undo items.")
			return nil
		}
		ui.UndoItemsTable(os.Stdout, s, items)
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema, backups and disk usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("status")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Status(5)
		if err != nil {
			return err
		}

		s := styler()
		cfg := a.Config()
		fmt.Printf("Schema version:  %d", st.SchemaVersion)
		if len(st.Pending) > 0 {
			fmt.Printf(" (%s)", s.Failure(fmt.Sprintf("%d pending", len(st.Pending))))
		}
		fmt.Println()
		fmt.Printf("Safety level:    %s\n", s.Safety(st.SafetyLevel))
		undo := s.Success("enabled")
		if !st.UndoEnabled {
			undo = s.Failure("disabled")
		}
		fmt.Printf("Undo backups:    %s (%d in %s)\n", undo, len(st.Backups), cfg.BackupDir)
		fmt.Printf("Isolation:       %s\n", cfg.Isolation.Mode)
		for _, d := range st.Disks {
			fmt.Printf("Disk:            %s\n", d)
		}
		if len(st.Operations) > 0 {
			fmt.Println()
			fmt.Println(s.Title("Recent operations"))
			ui.OperationsTable(os.Stdout, s, st.Operations)
		}
		return nil
	},
}

// plugin-worker command, run by the isolation adapter
var pluginWorkerCmd = &cobra.Command{
	Use:    app.WorkerCommand,
	Short:  "Serve one isolated plugin request on stdin/stdout",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("plugin")

		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		return app.ServeWorker(cmd.Context(), cfg, home, key, os.Stdin, os.Stdout, nil)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log everything to stderr")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().IntP("limit", "n", 20, "Maximum number of operations to show")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pluginWorkerCmd)
	pluginWorkerCmd.Flags().String("plugin", "", "Built-in plugin key")
	pluginWorkerCmd.MarkFlagRequired("plugin")
}

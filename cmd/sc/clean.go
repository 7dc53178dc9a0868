package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"sc-go/internal/app"
	"sc-go/internal/sc"
	"sc-go/internal/ui"

	"github.com/spf13/cobra"
)

// plugins command
var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List plugins and their availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("plugins")
		if err != nil {
			return err
		}
		defer a.Close()

		ui.PluginsTable(os.Stdout, styler(), a.Plugins(cmd.Context()))
		return nil
	},
}

// scanItems scans per the --plugin and --safety flags.
func scanItems(ctx context.Context, cmd *cobra.Command, a *app.SCApp) (map[string][]sc.CleanableItem, error) {
	if err := applySafetyFlag(cmd, a); err != nil {
		return nil, err
	}
	name, _ := cmd.Flags().GetString("plugin")
	return a.Scan(ctx, name)
}

// printScan prints one table per plugin with items, in registry order, and
// returns the item and byte totals.
func printScan(a *app.SCApp, s ui.Styler, found map[string][]sc.CleanableItem) (int, int64) {
	var count int
	var size int64
	for _, name := range a.PluginNames() {
		items := found[name]
		if len(items) == 0 {
			continue
		}
		fmt.Printf("%s  %d items, %s\n", s.Title(name), len(items), sc.HumanSize(sc.TotalSize(items)))
		ui.ItemsTable(os.Stdout, s, items)
		fmt.Println()
		count += len(items)
		size += sc.TotalSize(items)
	}
	return count, size
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Show what can be cleaned",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("scan")
		if err != nil {
			return err
		}
		defer a.Close()

		found, err := scanItems(cmd.Context(), cmd, a)
		if err != nil {
			return err
		}
		count, size := printScan(a, styler(), found)
		if count == 0 {
			fmt.Println("Nothing to clean.")
			return nil
		}
		fmt.Printf("Total: %d items, %s (safety level %s)\n", count, sc.HumanSize(size), a.SafetyLevel())
		return nil
	},
}

// clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Scan and clean, backing up removed files",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := newApp("clean")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		found, err := scanItems(ctx, cmd, a)
		if err != nil {
			return err
		}
		s := styler()
		count, size := printScan(a, s, found)
		if count == 0 {
			fmt.Println("Nothing to clean.")
			return nil
		}

		if !dryRun {
			question := fmt.Sprintf("Clean %d items (%s)?", count, sc.HumanSize(size))
			ok, err := ui.Confirm(os.Stdin, os.Stdout, question, yes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted.")
				return nil
			}
		}

		results := a.Clean(ctx, found, dryRun)
		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)
		ui.ResultsTable(os.Stdout, s, names, results)

		summary := sc.Summarize(results)
		fmt.Println()
		if dryRun {
			fmt.Printf("Dry run: %s would be freed.\n", sc.HumanSize(summary.Freed))
			return nil
		}
		fmt.Println(summary)
		if summary.Logged > 0 {
			fmt.Println(s.Muted("Undo with `sc restore <operation>`."))
		}
		if report, err := ui.DiskUsage("/"); err == nil {
			fmt.Println(report)
		}
		if summary.Succeeded < summary.Plugins {
			return fmt.Errorf("%d plugin(s) failed", summary.Plugins-summary.Succeeded)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, cleanCmd} {
		c.Flags().String("safety", "", "Maximum safety level: SAFE, CAUTION, ADVANCED or DANGEROUS")
		c.Flags().String("plugin", "", "Only this plugin")
	}
	cleanCmd.Flags().Bool("dry-run", false, "Report what would be cleaned")
	cleanCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

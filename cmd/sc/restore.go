package main

import (
	"fmt"
	"os"

	"sc-go/internal/model"
	"sc-go/internal/sc"
	"sc-go/internal/ui"

	"github.com/spf13/cobra"
)

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Restore the files removed by a clean operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawPolicy, _ := cmd.Flags().GetString("conflict-policy")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		id, err := parseOperationID(args[0])
		if err != nil {
			return err
		}
		policy, err := sc.ParseConflictPolicy(rawPolicy)
		if err != nil {
			return err
		}

		a, err := newApp("restore")
		if err != nil {
			return err
		}
		defer a.Close()

		op, items, err := a.Operation(id)
		if err != nil {
			return err
		}

		var restorable int
		for _, item := range items {
			if item.CanRestore && item.Restored != model.RestoreSucceeded {
				restorable++
			}
		}
		fmt.Printf("Operation #%d (%s): %d of %d items restorable, conflicts: %s\n",
			op.ID, op.PluginName, restorable, len(items), policy)

		if dryRun {
			ui.UndoItemsTable(os.Stdout, styler(), items)
			return nil
		}

		ok, err := ui.Confirm(os.Stdin, os.Stdout, "Restore?", yes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		results, err := a.Restore(id, policy)
		if err != nil {
			return err
		}
		var succeeded int
		for _, ok := range results {
			if ok {
				succeeded++
			}
		}
		fmt.Printf("Restored %d of %d items.\n", succeeded, len(results))

		if succeeded < len(results) {
			_, items, err := a.Operation(id)
			if err == nil {
				ui.UndoItemsTable(os.Stdout, styler(), items)
			}
			return fmt.Errorf("%d item(s) could not be restored", len(results)-succeeded)
		}
		return nil
	},
}

// gc command
var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Prune old backup directories",
	Long: `Remove backup directories selected by --keep-last and --older-than-days.
When both are given the union is removed. Without either, the backups are listed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")
		archiveFirst, _ := cmd.Flags().GetBool("archive")

		var opts sc.PruneOptions
		if cmd.Flags().Changed("keep-last") {
			n, _ := cmd.Flags().GetInt("keep-last")
			opts.KeepLast = &n
		}
		if cmd.Flags().Changed("older-than-days") {
			d, _ := cmd.Flags().GetInt("older-than-days")
			opts.OlderThanDays = &d
		}

		a, err := newApp("gc")
		if err != nil {
			return err
		}
		defer a.Close()

		if opts.KeepLast == nil && opts.OlderThanDays == nil {
			backups, err := a.Backups()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Println("No backups.")
				return nil
			}
			ui.BackupsTable(os.Stdout, backups)
			return nil
		}

		preview := opts
		preview.DryRun = true
		selected, err := a.Prune(preview, false)
		if err != nil {
			return err
		}
		if len(selected.Selected) == 0 {
			fmt.Println("Nothing to prune.")
			return nil
		}
		ui.BackupsTable(os.Stdout, selected.Selected)
		if dryRun {
			fmt.Printf("Would remove %d backup(s), keeping %d.\n", len(selected.Selected), selected.Remaining-len(selected.Selected))
			return nil
		}

		question := fmt.Sprintf("Remove %d backup(s)? Their operations can no longer be restored.", len(selected.Selected))
		ok, err := ui.Confirm(os.Stdin, os.Stdout, question, yes)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		result, err := a.Prune(opts, archiveFirst)
		if err != nil {
			return err
		}
		if archiveFirst {
			fmt.Printf("Archived %d, ", result.Archived)
		}
		fmt.Printf("Removed %d backup(s), %d remaining.\n", result.Removed, result.Remaining)
		return nil
	},
}

func init() {
	restoreCmd.Flags().String("conflict-policy", string(sc.DefaultConflictPolicy), "When the path exists: rename, overwrite or skip")
	restoreCmd.Flags().Bool("dry-run", false, "Show the items without restoring")
	restoreCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	gcCmd.Flags().Int("keep-last", 0, "Keep the newest N backups")
	gcCmd.Flags().Int("older-than-days", 0, "Remove backups older than D days")
	gcCmd.Flags().Bool("archive", false, "Archive each backup to the configured vault first")
	gcCmd.Flags().Bool("dry-run", false, "Show the selection without removing")
	gcCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

package ui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"sc-go/internal/model"
	"sc-go/internal/sc"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	return table
}

// ItemsTable lists scanned items with their size and safety level.
func ItemsTable(w io.Writer, s Styler, items []sc.CleanableItem) {
	table := newTable(w, []string{"SAFETY", "SIZE", "PATH", "DESCRIPTION"})
	for _, item := range items {
		table.Append([]string{s.Safety(item.Safety), item.HumanSize(), item.Path, item.Description})
	}
	table.Render()
}

// OperationsTable lists clean operations, newest first as given.
func OperationsTable(w io.Writer, s Styler, ops []*model.CleanOperation) {
	table := newTable(w, []string{"ID", "TIME", "PLUGIN", "ITEMS", "FREED", "STATUS"})
	for _, op := range ops {
		status := s.Success("ok")
		if !op.Success {
			status = s.Failure("failed")
		}
		table.Append([]string{
			strconv.FormatInt(op.ID, 10),
			op.Timestamp.Local().Format(timeLayout),
			op.PluginName,
			strconv.Itoa(op.ItemsCount),
			sc.HumanSize(op.SizeFreed),
			status,
		})
	}
	table.Render()
}

// UndoItemsTable lists the undo records of one operation.
func UndoItemsTable(w io.Writer, s Styler, items []*model.UndoItem) {
	table := newTable(w, []string{"ID", "PATH", "BACKUP", "STATE", "ERROR"})
	for _, item := range items {
		backup := s.Muted("not backed up")
		if item.BackupPath.Valid {
			backup = item.BackupPath.String
		}
		state := item.Restored.String()
		switch item.Restored {
		case model.RestoreSucceeded:
			state = s.Success(state)
		case model.RestoreFailed:
			state = s.Failure(state)
		}
		table.Append([]string{
			strconv.FormatInt(item.ID, 10),
			item.ItemPath,
			backup,
			state,
			item.RestoreError.String,
		})
	}
	table.Render()
}

// PluginInfo is one row of the plugins listing.
type PluginInfo struct {
	Name        string
	Description string
	Priority    int
	Available   bool
	DryRun      bool
}

func PluginsTable(w io.Writer, s Styler, plugins []PluginInfo) {
	table := newTable(w, []string{"NAME", "PRIORITY", "AVAILABLE", "DRY RUN", "DESCRIPTION"})
	for _, p := range plugins {
		avail := s.Success("yes")
		if !p.Available {
			avail = s.Muted("no")
		}
		table.Append([]string{p.Name, strconv.Itoa(p.Priority), avail, yesNo(p.DryRun), p.Description})
	}
	table.Render()
}

// BackupsTable lists backup directories still on disk.
func BackupsTable(w io.Writer, dirs []sc.BackupDir) {
	table := newTable(w, []string{"OPERATION", "CREATED", "DIRECTORY"})
	for _, d := range dirs {
		created := "-"
		if !d.Time.IsZero() {
			created = d.Time.Format(timeLayout)
		}
		table.Append([]string{strconv.FormatInt(d.OperationID, 10), created, d.Name})
	}
	table.Render()
}

// ResultsTable summarizes a clean across plugins.
func ResultsTable(w io.Writer, s Styler, names []string, results map[string]*sc.CleanResult) {
	table := newTable(w, []string{"PLUGIN", "STATUS", "ITEMS", "SIZE", "OPERATION"})
	for _, name := range names {
		r := results[name]
		status := s.Success("ok")
		switch {
		case !r.Success:
			status = s.Failure("failed")
		case r.DryRun:
			status = s.Muted("dry run")
		case r.LogError != "":
			status = s.Failure("not logged")
		}
		op := "-"
		if r.HasOperation() {
			op = fmt.Sprintf("#%d", r.OperationID)
		}
		table.Append([]string{name, status, strconv.Itoa(r.CleanedCount), sc.HumanSize(r.TotalSize), op})
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

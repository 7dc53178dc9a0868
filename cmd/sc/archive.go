package main

import (
	"fmt"
	"os"

	"sc-go/internal/encryption"
	"sc-go/internal/ui"

	"github.com/spf13/cobra"
)

// archive command
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect archived backups",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived backups in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("archive list")
		if err != nil {
			return err
		}
		defer a.Close()

		arch, err := a.Archiver()
		if err != nil {
			return err
		}
		entries, err := arch.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No archives.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %s\n", e.Name, e.Key)
		}
		return nil
	},
}

var archiveFetchCmd = &cobra.Command{
	Use:   "fetch NAME",
	Short: "Extract an archived backup directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("dest")

		a, err := newApp("archive fetch")
		if err != nil {
			return err
		}
		defer a.Close()

		if dest == "" {
			dest = a.Config().BackupDir
		}
		arch, err := a.Archiver()
		if err != nil {
			return err
		}

		var passphrase string
		enc, err := encryption.NewEncryptorFromConfig(a.Config().Archive.Encryption)
		if err != nil {
			return err
		}
		if encryption.NeedsPassphrase(enc) {
			if passphrase, err = ui.ReadPassphrase(os.Stdin, os.Stderr, "Passphrase: "); err != nil {
				return err
			}
		}

		path, err := arch.Fetch(args[0], dest, passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Fetched into %s\n", path)
		return nil
	},
}

func init() {
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveFetchCmd)
	archiveFetchCmd.Flags().String("dest", "", "Parent directory (default: the backup directory)")
}

package main

import (
	"fmt"
	"os"

	"sc-go/internal/app"
	"sc-go/internal/config"
	"sc-go/internal/encryption"
	"sc-go/internal/ui"

	"github.com/spf13/cobra"
)

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		encType, _ := cmd.Flags().GetString("encryption")
		archiveRoot, _ := cmd.Flags().GetString("archive-root")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Archive.Encryption.Type = encType
		if archiveRoot != "" {
			cfg.Archive.Enabled = true
			cfg.Archive.Vault.FSVaultRoot = archiveRoot
		}

		enc, err := encryption.NewEncryptorFromConfig(cfg.Archive.Encryption)
		if err != nil {
			return err
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)

		if !encryption.NeedsPassphrase(enc) || enc.IsConfigured() {
			return nil
		}
		passphrase, err := ui.ReadNewPassphrase(os.Stdin, os.Stderr)
		if err != nil {
			return err
		}
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating archive keys: %w", err)
		}
		fmt.Printf("Archive keys written to %s\n", cfg.Archive.Encryption.PublicKeyPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("# Configuration from %s\n\n", defaults["config_path"])
		m := &config.Manager{}
		return m.Write(os.Stdout, cfg)
	},
}

// schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Inspect and migrate the history database",
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("schema show")
		if err != nil {
			return err
		}
		defer a.Close()

		version, pending, err := a.Schema()
		if err != nil {
			return err
		}
		fmt.Printf("Schema version: %d\n", version)
		if len(pending) == 0 {
			fmt.Println("Up to date.")
		} else {
			fmt.Printf("Pending migrations: %v\n", pending)
		}
		return nil
	},
}

var schemaMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		apply, _ := cmd.Flags().GetBool("apply")

		a, err := newApp("schema migrate")
		if err != nil {
			return err
		}
		defer a.Close()

		_, pending, err := a.Schema()
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("No pending migrations.")
			return nil
		}
		if !apply {
			fmt.Printf("Would apply migrations %v (pass --apply)\n", pending)
			return nil
		}
		applied, err := a.Migrate()
		if err != nil {
			return err
		}
		fmt.Printf("Applied migrations %v\n", applied)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("encryption", "none", "Archive encryption: none or age")
	configInitCmd.Flags().String("archive-root", "", "Enable archiving into this directory")
	configCmd.AddCommand(configShowCmd)

	schemaCmd.AddCommand(schemaShowCmd)
	schemaCmd.AddCommand(schemaMigrateCmd)
	schemaMigrateCmd.Flags().Bool("apply", false, "Apply instead of listing")
}

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/archivesocial/archive/backend/internal/config"
	"github.com/archivesocial/archive/backend/internal/database"
	"github.com/spf13/cobra"
)

func main() {
	var dryRun bool

	rootCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the aRchive database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(dryRun)
		},
	}
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report missing tables without changing the schema")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMigrations(dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log.Println("Connecting to database...")
	if err := database.Initialize(cfg.Database, cfg.Environment); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close() }()
	log.Printf("Database connected (%s)", cfg.Database.Driver)

	if dryRun {
		migrator := database.DB.Migrator()
		missing := 0
		for _, model := range database.AllModels() {
			stmt := database.DB.Model(model).Statement
			if err := stmt.Parse(model); err != nil {
				return fmt.Errorf("parse model: %w", err)
			}
			state := "ok"
			if !migrator.HasTable(model) {
				state = "missing"
				missing++
			}
			fmt.Printf("  %-16s %s\n", stmt.Schema.Table, state)
		}
		fmt.Printf("%d table(s) would be created\n", missing)
		return nil
	}

	log.Println("Running migrations...")
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Println("All migrations completed successfully")
	return nil
}

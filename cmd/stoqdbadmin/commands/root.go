// Package commands wires the stoqdbadmin CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	dbURL   string
	sqlDir  string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stoqdbadmin",
	Short: "Stoq database administration",
	Long: `stoqdbadmin creates, migrates and seeds a Stoq database.

Subcommands:
  init     - Create all tables from metadata and seed a fresh database
  migrate  - Apply versioned schema migration scripts
  seed     - Re-run the idempotent bootstrap seeds`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// .env is optional; explicit flags win over environment
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&dbURL, "db", os.Getenv("STOQ_DB_DSN"), "Database connection URL (or STOQ_DB_DSN)")
	rootCmd.PersistentFlags().StringVar(&sqlDir, "sql-dir", defaultSQLDir(), "Directory holding migration scripts (or STOQ_SQL_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func defaultSQLDir() string {
	if dir := os.Getenv("STOQ_SQL_DIR"); dir != "" {
		return dir
	}
	return "./sql"
}

func requireDB() error {
	if dbURL == "" {
		return fmt.Errorf("no database given: pass --db or set STOQ_DB_DSN")
	}
	return nil
}

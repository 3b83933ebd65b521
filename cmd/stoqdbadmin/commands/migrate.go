package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stoqlib/cmd/stoqdbadmin/output"
	"stoqlib/cmd/stoqdbadmin/tui"
	"stoqlib/pkg/database"
	"stoqlib/pkg/migration"
)

var (
	// Migrate flags
	targetVersion int
	interactive   bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migration scripts",
	Long: `Apply versioned schema migration scripts, strictly in order.

Subcommands:
  up      - Walk the database up to the target version
  status  - Show which scripts are applied`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migration scripts",
	Long: `Apply every script between the database's current version and the
target, one transaction per script.

Examples:
  stoqdbadmin migrate up                 # Walk up to the latest script
  stoqdbadmin migrate up --to 5          # Stop at version 5
  stoqdbadmin migrate up --interactive   # Pick scripts in a TUI`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateUp()
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrateStatus()
	},
}

func init() {
	migrateUpCmd.Flags().IntVar(&targetVersion, "to", -1, "Target schema version (default: latest)")
	migrateUpCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Interactive TUI mode")
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrateUp() error {
	if err := requireDB(); err != nil {
		return err
	}
	if interactive {
		return tui.RunMigrateUI(dbURL, sqlDir)
	}
	ctx := context.Background()
	db, err := database.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	driver := migration.New(db, os.DirFS(sqlDir))
	before, err := driver.CurrentVersion(ctx)
	if err == nil && verbose {
		output.Info("database at version %d", before)
	}
	if err := driver.Up(ctx, targetVersion); err != nil {
		return err
	}
	after, err := driver.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	output.Success("database at version %d", after)
	return nil
}

func runMigrateStatus() error {
	if err := requireDB(); err != nil {
		return err
	}
	ctx := context.Background()
	db, err := database.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	driver := migration.New(db, os.DirFS(sqlDir))
	list, err := driver.StatusList(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		output.Muted("no migration scripts in %s", sqlDir)
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  \tVERSION\tSCRIPT\tAPPLIED AT")
	for _, st := range list {
		applied := ""
		if st.AppliedAt != nil {
			applied = st.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", output.StatusIcon(st.Applied), st.Version, st.Name, applied)
	}
	return w.Flush()
}

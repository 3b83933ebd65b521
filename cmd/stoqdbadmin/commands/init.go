package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"stoqlib/cmd/stoqdbadmin/output"
	"stoqlib/pkg/bootstrap"
	"stoqlib/pkg/database"
	"stoqlib/pkg/migration"
	"stoqlib/pkg/orm"
	"stoqlib/pkg/registry"

	// register the system entity classes
	_ "stoqlib/pkg/domain"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create and seed a fresh database",
	Long: `Create every registered table from metadata, stamp the schema at the
latest migration version and run the bootstrap seeds.

Examples:
  stoqdbadmin init --db postgres://localhost/stoq
  stoqdbadmin init --admin-user boss --station till-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func init() {
	initCmd.Flags().StringVar(&adminUser, "admin-user", "admin", "Administrator login name")
	initCmd.Flags().StringVar(&adminPassword, "admin-password", "", "Administrator password (or STOQ_ADMIN_PASSWORD)")
	initCmd.Flags().StringVar(&stationName, "station", "main", "Name of the default workstation")
	rootCmd.AddCommand(initCmd)
}

func runInit() error {
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
	if err := driver.CreateFromMetadata(ctx, registry.Default()); err != nil {
		return err
	}
	output.Success("created %d tables", len(registry.All()))

	store := orm.NewStore(db)
	if err := bootstrap.Run(ctx, store, seedConfig()); err != nil {
		return err
	}
	output.Success("seeded database")
	return nil
}

package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"stoqlib/cmd/stoqdbadmin/output"
	"stoqlib/pkg/bootstrap"
	"stoqlib/pkg/database"
	"stoqlib/pkg/orm"
)

var (
	adminUser     string
	adminPassword string
	stationName   string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run the bootstrap seeds",
	Long: `Run the idempotent bootstrap seeds: administrator account, default
station, units and baseline system parameters. Existing rows are left
alone, so re-running is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSeed()
	},
}

func init() {
	seedCmd.Flags().StringVar(&adminUser, "admin-user", "admin", "Administrator login name")
	seedCmd.Flags().StringVar(&adminPassword, "admin-password", "", "Administrator password (or STOQ_ADMIN_PASSWORD)")
	seedCmd.Flags().StringVar(&stationName, "station", "main", "Name of the default workstation")
	rootCmd.AddCommand(seedCmd)
}

func seedConfig() bootstrap.Config {
	cfg := bootstrap.DefaultConfig()
	cfg.AdminUsername = adminUser
	cfg.StationName = stationName
	switch {
	case adminPassword != "":
		cfg.AdminPassword = adminPassword
	case os.Getenv("STOQ_ADMIN_PASSWORD") != "":
		cfg.AdminPassword = os.Getenv("STOQ_ADMIN_PASSWORD")
	}
	return cfg
}

func runSeed() error {
	if err := requireDB(); err != nil {
		return err
	}
	ctx := context.Background()
	db, err := database.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := bootstrap.Run(ctx, orm.NewStore(db), seedConfig()); err != nil {
		return err
	}
	output.Success("seeds applied")
	return nil
}

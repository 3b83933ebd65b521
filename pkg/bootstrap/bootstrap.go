// Package bootstrap seeds a fresh database with the rows every
// installation needs: the administrator account, the default station, the
// unit enumeration and baseline system parameters. Every seed is
// check-then-insert, so running it again is harmless.
package bootstrap

import (
	"context"

	"stoqlib/pkg/domain"
	"stoqlib/pkg/orm"
)

// Config names the seeds that vary per installation.
type Config struct {
	AdminUsername string
	AdminPassword string
	StationName   string
}

// DefaultConfig is what an unattended install gets.
func DefaultConfig() Config {
	return Config{
		AdminUsername: "admin",
		AdminPassword: "admin",
		StationName:   "main",
	}
}

// defaultUnits is the unit enumeration seeded at install time.
var defaultUnits = []struct {
	abbreviation string
	description  string
}{
	{"un", "Unit"},
	{"kg", "Kilogram"},
	{"g", "Gram"},
	{"m", "Meter"},
	{"cm", "Centimeter"},
	{"l", "Liter"},
	{"ml", "Milliliter"},
	{"box", "Box"},
	{"pair", "Pair"},
}

// defaultParameters is the baseline parameter set.
var defaultParameters = map[string]string{
	"MAIN_COMPANY":        "",
	"DEFAULT_QUANTITY":    "1",
	"ALLOW_NEGATIVE_CASH": "false",
	"CITY_SUGGESTED":      "",
}

// Run seeds everything inside one transaction.
func Run(ctx context.Context, store *orm.Store, cfg Config) error {
	tx, err := store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Close(ctx)

	if _, err := EnsureAdminUser(ctx, tx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}
	if _, err := EnsureStation(ctx, tx, cfg.StationName); err != nil {
		return err
	}
	if err := SeedUnits(ctx, tx); err != nil {
		return err
	}
	if err := SeedParameters(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// EnsureAdminUser returns the administrator account, creating it when
// absent. An existing account keeps its password.
func EnsureAdminUser(ctx context.Context, tx *orm.Transaction, username, password string) (*domain.LoginUser, error) {
	user, err := domain.LoginUserByUsername(ctx, tx, username)
	if err == nil {
		return user, nil
	}
	if !orm.IsNotFound(err) {
		return nil, err
	}
	user, err = domain.NewLoginUser(tx)
	if err != nil {
		return nil, err
	}
	if err := user.SetUsername(ctx, username); err != nil {
		return nil, err
	}
	if err := user.SetPassword(ctx, password); err != nil {
		return nil, err
	}
	if err := user.Set(ctx, "is_admin", true); err != nil {
		return nil, err
	}
	if err := user.Flush(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureStation returns the named workstation, creating it when absent.
func EnsureStation(ctx context.Context, tx *orm.Transaction, name string) (*domain.BranchStation, error) {
	station, err := domain.BranchStationByName(ctx, tx, name)
	if err == nil {
		return station, nil
	}
	if !orm.IsNotFound(err) {
		return nil, err
	}
	station, err = domain.NewBranchStation(tx)
	if err != nil {
		return nil, err
	}
	if err := station.Set(ctx, "name", name); err != nil {
		return nil, err
	}
	if err := station.Flush(ctx); err != nil {
		return nil, err
	}
	return station, nil
}

// SeedUnits inserts every missing default unit.
func SeedUnits(ctx context.Context, tx *orm.Transaction) error {
	for _, u := range defaultUnits {
		_, err := domain.UnitByAbbreviation(ctx, tx, u.abbreviation)
		if err == nil {
			continue
		}
		if !orm.IsNotFound(err) {
			return err
		}
		unit, err := domain.NewUnit(tx)
		if err != nil {
			return err
		}
		if err := unit.Set(ctx, "abbreviation", u.abbreviation); err != nil {
			return err
		}
		if err := unit.Set(ctx, "description", u.description); err != nil {
			return err
		}
		if err := unit.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// SeedParameters writes every missing baseline parameter; present values
// are left alone.
func SeedParameters(ctx context.Context, tx *orm.Transaction) error {
	for name, value := range defaultParameters {
		_, err := tx.FindByUnique(ctx, "SystemParameter", "field_name", name)
		if err == nil {
			continue
		}
		if !orm.IsNotFound(err) {
			return err
		}
		if err := domain.SetParameter(ctx, tx, name, value); err != nil {
			return err
		}
	}
	return nil
}

package domain

import (
	"context"

	"stoqlib/pkg/orm"
	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

// UnitTable is the metadata for sellable units of measure.
var UnitTable = registry.MustRegister(schema.MustTable("Unit", []*schema.Column{
	schema.String("description").NotNull().WithMaxLen(64),
	schema.String("abbreviation").NotNull().AsUnique().WithMaxLen(10),
}))

// Unit is a unit of measure a sellable is counted in.
type Unit struct {
	*orm.Record
}

// NewUnit starts a unit in the creating state.
func NewUnit(tx *orm.Transaction) (*Unit, error) {
	rec, err := tx.Create("Unit")
	if err != nil {
		return nil, err
	}
	return &Unit{Record: rec}, nil
}

// UnitByAbbreviation fetches a unit by its unique abbreviation.
func UnitByAbbreviation(ctx context.Context, tx *orm.Transaction, abbreviation string) (*Unit, error) {
	rec, err := tx.FindByUnique(ctx, "Unit", "abbreviation", abbreviation)
	if err != nil {
		return nil, err
	}
	return &Unit{Record: rec}, nil
}

// Description returns the unit's display name.
func (u *Unit) Description(ctx context.Context) (string, error) {
	v, err := u.Get(ctx, "description")
	if err != nil {
		return "", err
	}
	s, _ := v.(string)
	return s, nil
}

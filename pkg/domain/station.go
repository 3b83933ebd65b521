package domain

import (
	"context"

	"stoqlib/pkg/orm"
	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

// BranchStationTable is the metadata for workstations; audit rows reference
// the station a mutation happened on.
var BranchStationTable = registry.MustRegister(schema.MustTable("BranchStation", []*schema.Column{
	schema.String("name").NotNull().AsUnique().WithMaxLen(128),
	schema.Bool("is_active").Default(true),
}))

// BranchStation is one workstation of a branch.
type BranchStation struct {
	*orm.Record
}

// NewBranchStation starts a station in the creating state.
func NewBranchStation(tx *orm.Transaction) (*BranchStation, error) {
	rec, err := tx.Create("BranchStation")
	if err != nil {
		return nil, err
	}
	return &BranchStation{Record: rec}, nil
}

// GetBranchStation fetches a station by primary key.
func GetBranchStation(ctx context.Context, tx *orm.Transaction, id int64) (*BranchStation, error) {
	rec, err := tx.Get(ctx, "BranchStation", id)
	if err != nil {
		return nil, err
	}
	return &BranchStation{Record: rec}, nil
}

// BranchStationByName fetches a station by its unique name.
func BranchStationByName(ctx context.Context, tx *orm.Transaction, name string) (*BranchStation, error) {
	rec, err := tx.FindByUnique(ctx, "BranchStation", "name", name)
	if err != nil {
		return nil, err
	}
	return &BranchStation{Record: rec}, nil
}

// Name returns the station name.
func (s *BranchStation) Name(ctx context.Context) (string, error) {
	v, err := s.Get(ctx, "name")
	if err != nil {
		return "", err
	}
	n, _ := v.(string)
	return n, nil
}

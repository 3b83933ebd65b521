package domain

import (
	"context"

	"stoqlib/pkg/orm"
	"stoqlib/pkg/registry"
	"stoqlib/pkg/schema"
)

// SystemParameterTable is the metadata for installation-wide settings,
// stored as name/value text pairs.
var SystemParameterTable = registry.MustRegister(schema.MustTable("SystemParameter", []*schema.Column{
	schema.String("field_name").NotNull().AsUnique().WithMaxLen(128),
	schema.String("field_value"),
}))

// SystemParameter is one installation setting.
type SystemParameter struct {
	*orm.Record
}

// GetParameter reads a parameter value by name; a missing parameter falls
// back to def.
func GetParameter(ctx context.Context, tx *orm.Transaction, name, def string) (string, error) {
	rec, err := tx.FindByUnique(ctx, "SystemParameter", "field_name", name)
	if err != nil {
		if orm.IsNotFound(err) {
			return def, nil
		}
		return "", err
	}
	v, err := rec.Get(ctx, "field_value")
	if err != nil {
		return "", err
	}
	if v == nil {
		return def, nil
	}
	s, _ := v.(string)
	return s, nil
}

// SetParameter writes a parameter, creating the row when absent.
func SetParameter(ctx context.Context, tx *orm.Transaction, name, value string) error {
	rec, err := tx.FindByUnique(ctx, "SystemParameter", "field_name", name)
	if err != nil {
		if !orm.IsNotFound(err) {
			return err
		}
		rec, err = tx.Create("SystemParameter")
		if err != nil {
			return err
		}
		if err := rec.Set(ctx, "field_name", name); err != nil {
			return err
		}
		if err := rec.Set(ctx, "field_value", value); err != nil {
			return err
		}
		return rec.Flush(ctx)
	}
	return rec.Set(ctx, "field_value", value)
}

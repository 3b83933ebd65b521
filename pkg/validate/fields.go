package validate

// Record is the value shape consumed by record-level validators.
type Record = map[string]any

type fieldsMatch struct {
	base
	fields []string
}

var fieldsMatchMessages = Messages{
	"invalid":   "fields do not match",
	"notrecord": "a record of fields is required",
}

// FieldsMatch fails unless every named field of the record holds the same
// value. The error carries a per-field breakdown in Fields.
func FieldsMatch(fields []string, opts ...Option) Validator {
	return &fieldsMatch{base: newBase(fieldsMatchMessages, opts), fields: fields}
}

func (v *fieldsMatch) ToGo(value any, st State) (any, error) {
	if err := v.ValidateGo(value, st); err != nil {
		return nil, err
	}
	return value, nil
}

func (v *fieldsMatch) FromGo(value any, _ State) (any, error) {
	return value, nil
}

func (v *fieldsMatch) ValidateGo(value any, st State) error {
	record, ok := value.(Record)
	if !ok {
		return v.invalid(st, value, "notrecord")
	}
	if len(v.fields) < 2 {
		return nil
	}
	first := record[v.fields[0]]
	fields := make(map[string]*Invalid)
	for _, name := range v.fields[1:] {
		if record[name] != first {
			fields[name] = &Invalid{Message: v.message("invalid"), Value: record[name], State: st}
		}
	}
	if len(fields) > 0 {
		return &Invalid{Message: v.message("invalid"), Value: value, State: st, Fields: fields}
	}
	return nil
}

// Stripped is the result of StripField: the removed value plus the record
// without it.
type Stripped struct {
	Value  any
	Record Record
}

type stripField struct {
	base
	field string
}

var stripFieldMessages = Messages{
	"missing":   "the field %(name)s is missing",
	"notrecord": "a record of fields is required",
}

// StripField removes the named field from a record and returns both pieces.
func StripField(field string, opts ...Option) Validator {
	return &stripField{base: newBase(stripFieldMessages, opts), field: field}
}

func (v *stripField) ToGo(value any, st State) (any, error) {
	record, ok := value.(Record)
	if !ok {
		return nil, v.invalid(st, value, "notrecord")
	}
	stripped, ok := record[v.field]
	if !ok {
		return nil, v.invalid(st, value, "missing", "name", v.field)
	}
	rest := make(Record, len(record)-1)
	for name, val := range record {
		if name != v.field {
			rest[name] = val
		}
	}
	return Stripped{Value: stripped, Record: rest}, nil
}

func (v *stripField) FromGo(value any, _ State) (any, error) {
	s, ok := value.(Stripped)
	if !ok {
		return value, nil
	}
	record := make(Record, len(s.Record)+1)
	for name, val := range s.Record {
		record[name] = val
	}
	record[v.field] = s.Value
	return record, nil
}

func (v *stripField) ValidateGo(value any, st State) error {
	if _, ok := value.(Record); !ok {
		if _, ok := value.(Stripped); !ok {
			return v.invalid(st, value, "notrecord")
		}
	}
	return nil
}

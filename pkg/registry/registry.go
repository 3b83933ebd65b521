// Package registry provides a central registry for entity class metadata.
// Foreign-key targets are declared by class name and resolved here lazily,
// so mutually referencing classes can register in any order.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"stoqlib/pkg/schema"
)

// Inbound describes a foreign key pointing at a class: which class holds
// the reference, through which column, and with what delete policy.
type Inbound struct {
	FromClass string
	Column    string
	OnDelete  schema.Cascade
}

// Registry is a thread-safe map from class name to table metadata.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*schema.Table
	tables  map[string]*schema.Table
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		classes: make(map[string]*schema.Table),
		tables:  make(map[string]*schema.Table),
	}
}

// Register records the metadata for its class name. Registering the same
// class twice is fine as long as the metadata is the same object;
// conflicting re-registration is an error.
func (r *Registry) Register(table *schema.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.classes[table.ClassName]; ok {
		if existing == table {
			return nil
		}
		return fmt.Errorf("registry: class %s already registered with different metadata", table.ClassName)
	}
	r.classes[table.ClassName] = table
	r.tables[table.Name] = table
	return nil
}

// Get resolves a class name to its metadata.
func (r *Registry) Get(className string) (*schema.Table, error) {
	r.mu.RLock()
	table, ok := r.classes[className]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: class %s not registered", className)
	}
	return table, nil
}

// GetByTableName resolves a table name to its metadata.
func (r *Registry) GetByTableName(name string) (*schema.Table, error) {
	r.mu.RLock()
	table, ok := r.tables[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("registry: table %s not registered", name)
	}
	return table, nil
}

// Has reports whether className is registered.
func (r *Registry) Has(className string) bool {
	r.mu.RLock()
	_, ok := r.classes[className]
	r.mu.RUnlock()
	return ok
}

// All returns every registered table, keyed by class name.
func (r *Registry) All() map[string]*schema.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*schema.Table, len(r.classes))
	for name, table := range r.classes {
		out[name] = table
	}
	return out
}

// InboundReferences returns every foreign key declared against className,
// across all registered classes, ordered by class name so delete cascades
// walk deterministically.
func (r *Registry) InboundReferences(className string) []Inbound {
	r.mu.RLock()
	defer r.mu.RUnlock()

	froms := make([]string, 0, len(r.classes))
	for from := range r.classes {
		froms = append(froms, from)
	}
	sort.Strings(froms)

	var out []Inbound
	for _, from := range froms {
		for _, col := range r.classes[from].References() {
			if col.Target == className {
				out = append(out, Inbound{FromClass: from, Column: col.Name, OnDelete: col.OnDelete})
			}
		}
	}
	return out
}

// Clear removes all registered classes.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes = make(map[string]*schema.Table)
	r.tables = make(map[string]*schema.Table)
}

// global is the default registry instance.
var global = New()

// Register records metadata in the default registry.
func Register(table *schema.Table) error { return global.Register(table) }

// MustRegister is Register, panicking on conflict; for package-level
// declarations.
func MustRegister(table *schema.Table) *schema.Table {
	if err := global.Register(table); err != nil {
		panic(err)
	}
	return table
}

// Get resolves a class name in the default registry.
func Get(className string) (*schema.Table, error) { return global.Get(className) }

// GetByTableName resolves a table name in the default registry.
func GetByTableName(name string) (*schema.Table, error) { return global.GetByTableName(name) }

// Has reports registration in the default registry.
func Has(className string) bool { return global.Has(className) }

// All returns every table in the default registry.
func All() map[string]*schema.Table { return global.All() }

// InboundReferences consults the default registry.
func InboundReferences(className string) []Inbound { return global.InboundReferences(className) }

// Clear resets the default registry; tests use this.
func Clear() { global.Clear() }

// Default returns the default registry instance.
func Default() *Registry { return global }

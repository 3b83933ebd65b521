// Package migration drives versioned schema upgrades: integer-versioned
// SQL scripts applied strictly in order, tracked in a system table, plus
// fresh-install table creation straight from registered metadata.
package migration

import (
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Script is one schema upgrade step.
type Script struct {
	Version int
	Name    string
	SQL     string
}

// SchemaMismatchError reports a database whose version cannot be walked to
// the target: a missing script or a downgrade request.
type SchemaMismatchError struct {
	Current int
	Target  int
	Missing int
}

func (e *SchemaMismatchError) Error() string {
	if e.Missing > 0 {
		return fmt.Sprintf("schema mismatch: no script for version %d (database at %d, target %d)",
			e.Missing, e.Current, e.Target)
	}
	return fmt.Sprintf("schema mismatch: database at version %d, target %d", e.Current, e.Target)
}

var scriptName = regexp.MustCompile(`^postgres-schema-migration-(\d+)\.sql$`)

// LoadScripts reads every migration script at the root of fsys. Scripts are
// named postgres-schema-migration-<version>.sql; anything else is ignored.
// The result is sorted by version and a duplicate version is an error.
func LoadScripts(fsys fs.FS) ([]Script, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration scripts: %w", err)
	}
	seen := make(map[int]string)
	var scripts []Script
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := scriptName.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("bad version in script name %s: %w", entry.Name(), err)
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d: %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()
		body, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		scripts = append(scripts, Script{Version: version, Name: entry.Name(), SQL: string(body)})
	}
	sort.Slice(scripts, func(i, j int) bool { return scripts[i].Version < scripts[j].Version })
	return scripts, nil
}

// splitStatements breaks a script into executable statements, dropping
// comment lines and empty fragments. Semicolons inside string literals are
// not handled; scripts must not rely on them.
func splitStatements(sql string) []string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	var out []string
	for _, stmt := range strings.Split(strings.Join(kept, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

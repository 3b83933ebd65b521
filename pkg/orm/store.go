// Package orm is the entity runtime: descriptor-backed records with an
// identity cache, state tracking, validator-gated writes, cascade deletes
// and audit rows stamped at commit.
package orm

import (
	"context"
	"time"

	"stoqlib/pkg/database"
	"stoqlib/pkg/registry"
)

// Beginner is what a Store needs from the backend: plain queries plus the
// ability to open transactions. *database.DB satisfies it; tests use a
// scripted fake.
type Beginner interface {
	database.Runner
	Begin(ctx context.Context) (database.TxRunner, error)
}

// Store holds the backend handle and the policy knobs shared by every
// transaction it opens.
type Store struct {
	db          Beginner
	reg         *registry.Registry
	lazyUpdates bool
	now         func() time.Time
}

// StoreOption adjusts Store construction.
type StoreOption func(*Store)

// WithRegistry uses reg instead of the package default registry.
func WithRegistry(reg *registry.Registry) StoreOption {
	return func(s *Store) { s.reg = reg }
}

// WithLazyUpdates batches live-entity writes into a single UPDATE at Sync
// or Commit instead of one UPDATE per attribute write.
func WithLazyUpdates(on bool) StoreOption {
	return func(s *Store) { s.lazyUpdates = on }
}

// WithClock overrides the audit timestamp source; tests pin it.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore builds a Store over db.
func NewStore(db Beginner, opts ...StoreOption) *Store {
	s := &Store{
		db:  db,
		reg: registry.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the class registry the store resolves metadata in.
func (s *Store) Registry() *registry.Registry { return s.reg }

// Begin opens a backend transaction with its own identity cache.
func (s *Store) Begin(ctx context.Context) (*Transaction, error) {
	runner, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		store:  s,
		runner: runner,
		cache:  newIdentityCache(),
	}, nil
}

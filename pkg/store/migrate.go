package store

import (
	"context"
	"fmt"

	"github.com/provado/provado/pkg/models"
)

// MigrationKind classifies what a migration defines.
type MigrationKind string

const (
	MigrationAnalyzer MigrationKind = "analyzer"
	MigrationIndex    MigrationKind = "index"
)

// Migration is one idempotent schema statement plus the identity it is
// tracked under in the migrations log. Database-level migrations use the
// pseudo table name "database".
type Migration struct {
	Name      string        `json:"name"`
	Kind      MigrationKind `json:"kind"`
	Table     models.Entity `json:"table"`
	Statement string        `json:"query"`
	CreatedAt int64         `json:"createdAt"`
	UpdatedAt int64         `json:"updatedAt"`
}

// migrationIdentityIndex backs the claim protocol: two instances racing to
// apply the same migration collide on this unique index, so at most one
// claim wins. "table" is a reserved word and must stay escaped.
const migrationIdentityIndex = "DEFINE INDEX IF NOT EXISTS identityIndex ON TABLE migrations COLUMNS name, `table` UNIQUE;"

// RunMigrations applies every pending migration for the entity, in catalog
// order. Each migration is claimed in the log before it runs: a claim that
// already exists means the migration was applied (or is being applied by a
// concurrent instance) and is skipped. A migration whose statement fails is
// logged and left unrecorded so a later start retries it; the remaining
// migrations still run.
func (s *Store) RunMigrations(ctx context.Context, entity models.Entity) error {
	pending := migrationCatalog[entity]
	if len(pending) == 0 {
		return nil
	}
	if _, err := s.conn.Query(ctx, migrationIdentityIndex, nil); err != nil {
		return fmt.Errorf("define migration identity index: %w", err)
	}
	for _, m := range pending {
		if err := s.runMigration(ctx, m); err != nil {
			// A migration that cannot even be checked is skipped; the
			// next start retries it.
			s.log.Error().Err(err).Str("name", m.Name).Str("table", string(m.Table)).
				Msg("migration skipped")
		}
	}
	return nil
}

// RunAllMigrations applies the whole catalog, database-level definitions
// first so table indexes can reference the analyzers they depend on.
func (s *Store) RunAllMigrations(ctx context.Context) error {
	for _, entity := range migrationOrder {
		if err := s.RunMigrations(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) runMigration(ctx context.Context, m Migration) error {
	applied, err := s.FindOneWhere(ctx, models.EntityMigrations,
		"name = $name AND `table` = $table",
		map[string]any{"name": m.Name, "table": string(m.Table)})
	if err != nil {
		return fmt.Errorf("check migration %s on %s: %w", m.Name, m.Table, err)
	}
	if applied != nil {
		return nil
	}

	now := models.Timestamp()
	m.CreatedAt, m.UpdatedAt = now, now
	claim, err := s.conn.Create(ctx, models.EntityMigrations, m)
	if err != nil || len(claim) == 0 {
		// Unique index collision: a concurrent instance holds the claim.
		s.log.Debug().Err(err).Str("name", m.Name).Str("table", string(m.Table)).
			Msg("migration already claimed")
		return nil
	}

	s.log.Info().Str("name", m.Name).Str("table", string(m.Table)).Msg("applying migration")
	results, err := s.conn.Query(ctx, m.Statement, nil)
	if err == nil && len(results) == 0 {
		err = fmt.Errorf("statement produced no result")
	}
	for _, res := range results {
		if !res.OK() {
			err = fmt.Errorf("statement status %s", res.Status)
			break
		}
	}
	if err != nil {
		// Release the claim so the next start retries; the failure never
		// blocks the remaining migrations.
		s.log.Error().Err(err).Str("name", m.Name).Str("table", string(m.Table)).
			Msg("migration failed")
		s.Delete(ctx, models.EntityMigrations, models.LocalID(claim[0]["id"]))
	}
	return nil
}

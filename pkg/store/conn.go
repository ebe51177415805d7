// Package store is the data-access layer. It speaks to SurrealDB through a
// narrow Conn interface so the repository logic stays testable against a
// scripted transport, and it owns the schema migrations that the catalog
// tables depend on.
package store

import (
	"context"

	surreal "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/provado/provado/pkg/models"
)

// StatusOK is the per-statement status the database reports on success.
const StatusOK = "OK"

// Result is the outcome of one statement in a query batch.
type Result struct {
	Status string
	Rows   []models.Record
}

// OK reports whether the statement ran without error.
func (r Result) OK() bool { return r.Status == StatusOK }

// Conn is the transport the store runs on. The production implementation
// wraps the SurrealDB SDK; tests substitute a scripted connection.
type Conn interface {
	// Query runs a statement batch and returns one Result per statement.
	Query(ctx context.Context, sql string, vars map[string]any) ([]Result, error)
	// Create inserts a record into the entity's table.
	Create(ctx context.Context, entity models.Entity, data any) ([]models.Record, error)
	// Merge applies a partial update to the referenced record.
	Merge(ctx context.Context, ref surreal.RecordID, data any) (models.Record, error)
	// Select fetches the referenced record, nil when it does not exist.
	Select(ctx context.Context, ref surreal.RecordID) (models.Record, error)
	// Delete removes the referenced record.
	Delete(ctx context.Context, ref surreal.RecordID) error
	// Close tears the connection down.
	Close(ctx context.Context) error
}

package store

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	surreal "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/provado/provado/pkg/models"
)

// ConnConfig carries what Connect needs to reach the database.
type ConnConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// surrealConn adapts the SurrealDB SDK to the Conn interface.
type surrealConn struct {
	db *surrealdb.DB
}

// Connect dials SurrealDB over WebSocket with the surrealcbor codec, which
// is required for time.Time and RecordID values to round-trip correctly.
func Connect(ctx context.Context, cfg ConnConfig) (Conn, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	db, err := surrealdb.FromConnection(ctx, gorillaws.New(conf))
	if err != nil {
		return nil, fmt.Errorf("connect to surrealdb: %w", err)
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("use %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}

	return &surrealConn{db: db}, nil
}

func (c *surrealConn) Query(ctx context.Context, sql string, vars map[string]any) ([]Result, error) {
	raw, err := surrealdb.Query[[]models.Record](ctx, c.db, sql, vars)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	results := make([]Result, 0, len(*raw))
	for _, qr := range *raw {
		results = append(results, Result{Status: qr.Status, Rows: qr.Result})
	}
	return results, nil
}

func (c *surrealConn) Create(ctx context.Context, entity models.Entity, data any) ([]models.Record, error) {
	rec, err := surrealdb.Create[models.Record](ctx, c.db, string(entity), data)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return []models.Record{*rec}, nil
}

func (c *surrealConn) Merge(ctx context.Context, ref surreal.RecordID, data any) (models.Record, error) {
	rec, err := surrealdb.Merge[models.Record](ctx, c.db, ref, data)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return *rec, nil
}

func (c *surrealConn) Select(ctx context.Context, ref surreal.RecordID) (models.Record, error) {
	rec, err := surrealdb.Select[models.Record](ctx, c.db, ref)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	return *rec, nil
}

func (c *surrealConn) Delete(ctx context.Context, ref surreal.RecordID) error {
	_, err := surrealdb.Delete[models.Record](ctx, c.db, ref)
	return err
}

func (c *surrealConn) Close(ctx context.Context) error {
	return c.db.Close(ctx)
}

// isNotFound recognizes the error shapes the SDK produces when a record
// lookup matches nothing.
func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "cannot unmarshal array into Go value")
}

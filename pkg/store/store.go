package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	surreal "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/provado/provado/pkg/models"
	"github.com/provado/provado/pkg/query"
)

// ErrCreateFailed is returned when the database accepts a create call but
// hands back no record.
var ErrCreateFailed = errors.New("store: create returned no record")

// Page is one page of a paginated listing plus the total count of records
// matching the filters across all pages.
type Page struct {
	Total int             `json:"total"`
	Data  []models.Record `json:"data"`
}

// Store is the repository over all catalog entities. It is safe for
// concurrent use; all state lives in the database.
type Store struct {
	conn Conn
	log  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger replaces the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New wraps a connection in a Store.
func New(conn Conn, opts ...Option) *Store {
	s := &Store{conn: conn, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the underlying connection.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// Create inserts data into the entity's table and returns the stored record
// with its id localized.
func (s *Store) Create(ctx context.Context, entity models.Entity, data any) (models.Record, error) {
	rows, err := s.conn.Create(ctx, entity, data)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", entity, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create %s: %w", entity, ErrCreateFailed)
	}
	return models.NormalizeRecord(rows[0]), nil
}

// Update merges a partial patch into the record and returns the updated
// record. The patch's updatedAt is stamped here so callers cannot forget it.
func (s *Store) Update(ctx context.Context, entity models.Entity, uid string, patch map[string]any) (models.Record, error) {
	if patch == nil {
		patch = map[string]any{}
	}
	patch["updatedAt"] = models.Timestamp()
	rec, err := s.conn.Merge(ctx, surreal.NewRecordID(string(entity), uid), patch)
	if err != nil {
		s.log.Error().Err(err).Str("entity", string(entity)).Str("uid", uid).Msg("update failed")
		return nil, fmt.Errorf("update %s:%s: %w", entity, uid, err)
	}
	return models.NormalizeRecord(rec), nil
}

// FindOneByUID fetches a record by its local id. A missing record yields
// (nil, nil).
func (s *Store) FindOneByUID(ctx context.Context, entity models.Entity, uid string) (models.Record, error) {
	rec, err := s.conn.Select(ctx, surreal.NewRecordID(string(entity), uid))
	if err != nil {
		return nil, fmt.Errorf("find %s:%s: %w", entity, uid, err)
	}
	return models.NormalizeRecord(rec), nil
}

// FindOneWithRelationsByUID fetches a record by local id with the given
// relations expanded in the projection. A missing record yields (nil, nil).
func (s *Store) FindOneWithRelationsByUID(ctx context.Context, entity models.Entity, uid string, relations []models.Relation) (models.Record, error) {
	sql := fmt.Sprintf("SELECT %s FROM %s;", query.RelationProjection(relations), models.Qualify(entity, uid))
	results, err := s.conn.Query(ctx, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("find %s:%s: %w", entity, uid, err)
	}
	rows := firstRows(results)
	if len(rows) == 0 {
		return nil, nil
	}
	return models.NormalizeRecordWithRelations(rows[0], relations), nil
}

// FindOneWhere fetches the record matching a prebuilt clause body and its
// bindings. A zero-row result yields (nil, nil). More than one match is a
// uniqueness violation: it is logged once and the first row wins.
func (s *Store) FindOneWhere(ctx context.Context, entity models.Entity, where string, vars map[string]any) (models.Record, error) {
	sql, vars := query.SelectOneWhere(entity, where, vars)
	results, err := s.conn.Query(ctx, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("find one %s: %w", entity, err)
	}
	rows := firstRows(results)
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		s.log.Warn().Str("entity", string(entity)).Str("where", where).
			Int("rows", len(rows)).Msg("expected a single record")
	}
	return models.NormalizeRecord(rows[0]), nil
}

// FindWhere returns every record matching the filters, an empty slice when
// nothing matches. A zero limit leaves the result unbounded.
func (s *Store) FindWhere(ctx context.Context, entity models.Entity, filters []query.Filter, limit int) ([]models.Record, error) {
	sql, vars := query.SelectWhere(entity, filters, limit)
	results, err := s.conn.Query(ctx, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", entity, err)
	}
	return normalizeAll(firstRows(results)), nil
}

// FindRandom draws up to limit records matching the filters in random order.
func (s *Store) FindRandom(ctx context.Context, entity models.Entity, filters []query.Filter, limit int) ([]models.Record, error) {
	sql, vars := query.Random(entity, filters, limit)
	results, err := s.conn.Query(ctx, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("find random %s: %w", entity, err)
	}
	return normalizeAll(firstRows(results)), nil
}

// Search runs a ranked full-text search over the entity's indexed fields.
func (s *Store) Search(ctx context.Context, entity models.Entity, fields []string, term string, limit, start int) ([]models.Record, error) {
	sql, vars := query.Search(entity, fields, term, limit, start)
	results, err := s.conn.Query(ctx, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", entity, err)
	}
	return normalizeAll(firstRows(results)), nil
}

// Count returns the number of records matching the filters.
func (s *Store) Count(ctx context.Context, entity models.Entity, filters []query.Filter) (int, error) {
	sql, vars := query.CountWhere(entity, filters)
	results, err := s.conn.Query(ctx, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", entity, err)
	}
	return countTotal(firstRows(results)), nil
}

// Paginate returns one page of records plus the total matching count, both
// read in a single transaction so the count and the page agree.
func (s *Store) Paginate(ctx context.Context, entity models.Entity, filters []query.Filter, limit, start int) (*Page, error) {
	return s.paginate(ctx, entity, filters, limit, start, "", nil)
}

// PaginateWithRelations is Paginate with the given relations expanded on
// every record of the page.
func (s *Store) PaginateWithRelations(ctx context.Context, entity models.Entity, filters []query.Filter, limit, start int, relations []models.Relation) (*Page, error) {
	return s.paginate(ctx, entity, filters, limit, start, query.RelationProjection(relations), relations)
}

func (s *Store) paginate(ctx context.Context, entity models.Entity, filters []query.Filter, limit, start int, projection string, relations []models.Relation) (*Page, error) {
	sql, vars := query.Paginate(entity, filters, limit, start, projection)
	results, err := s.conn.Query(ctx, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("paginate %s: %w", entity, err)
	}
	// One result per transaction statement: count first, page second.
	total := countTotal(firstRows(results))
	if total == 0 || len(results) < 2 {
		return &Page{Total: 0, Data: []models.Record{}}, nil
	}
	data := results[1].Rows
	if data == nil {
		data = []models.Record{}
	}
	for i, rec := range data {
		if relations != nil {
			data[i] = models.NormalizeRecordWithRelations(rec, relations)
			continue
		}
		data[i] = models.NormalizeRecord(rec)
	}
	return &Page{Total: total, Data: data}, nil
}

// SelectByFilters runs one bounded select per selector in a single
// transaction and returns the flattened union of the batches, each record
// with FETCH-expanded columns localized.
func (s *Store) SelectByFilters(ctx context.Context, entity models.Entity, filters []query.Filter) ([]models.Record, error) {
	_, selectors := query.Selectors(filters)
	if len(selectors) == 0 {
		return []models.Record{}, nil
	}
	sql, vars := query.SelectorBatch(entity, filters)
	results, err := s.conn.Query(ctx, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("select by filters %s: %w", entity, err)
	}
	merged := []models.Record{}
	for i, res := range results {
		var fetch []string
		if i < len(selectors) {
			fetch = selectors[i].Fetch
		}
		for _, rec := range res.Rows {
			rec = models.NormalizeRecord(rec)
			if len(fetch) > 0 {
				rec = models.NormalizeFetched(rec, fetch)
			}
			merged = append(merged, rec)
		}
	}
	return merged, nil
}

// Delete removes a record. Failures are logged and otherwise swallowed so a
// missing record never fails a caller's cleanup path.
func (s *Store) Delete(ctx context.Context, entity models.Entity, uid string) {
	if err := s.conn.Delete(ctx, surreal.NewRecordID(string(entity), uid)); err != nil {
		s.log.Error().Err(err).Str("entity", string(entity)).Str("uid", uid).Msg("delete failed")
	}
}

// Query runs a raw statement batch on the underlying connection.
func (s *Store) Query(ctx context.Context, sql string, vars map[string]any) ([]Result, error) {
	return s.conn.Query(ctx, sql, vars)
}

func firstRows(results []Result) []models.Record {
	if len(results) == 0 {
		return nil
	}
	return results[0].Rows
}

func normalizeAll(rows []models.Record) []models.Record {
	out := make([]models.Record, 0, len(rows))
	for _, rec := range rows {
		out = append(out, models.NormalizeRecord(rec))
	}
	return out
}

func countTotal(rows []models.Record) int {
	if len(rows) == 0 {
		return 0
	}
	switch total := rows[0]["total"].(type) {
	case int:
		return total
	case int64:
		return int(total)
	case uint64:
		return int(total)
	case float64:
		return int(total)
	default:
		return 0
	}
}

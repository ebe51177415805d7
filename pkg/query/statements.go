package query

import (
	"sort"
	"strings"

	"github.com/provado/provado/pkg/models"
)

// SelectWhere builds a plain filtered select. A zero limit leaves the
// statement unbounded.
func SelectWhere(entity models.Entity, filters []Filter, limit int) (string, map[string]any) {
	c := newBuildContext()
	c.writef("SELECT * FROM %s", entity)
	writeWhere(c, filters)
	if limit > 0 {
		c.writef(" LIMIT %d", limit)
	}
	c.write(";")
	return c.sb.String(), c.vars
}

// SelectOneWhere builds a single-record lookup against a prebuilt clause
// body and its bindings, for callers that filter on columns directly. The
// statement is deliberately unbounded: the caller inspects the row count so
// a uniqueness violation surfaces instead of being truncated away.
func SelectOneWhere(entity models.Entity, where string, vars map[string]any) (string, map[string]any) {
	c := newBuildContext()
	c.writef("SELECT * FROM %s", entity)
	if where != "" {
		c.writef(" WHERE %s", where)
	}
	c.write(";")
	return c.sb.String(), vars
}

// CountWhere counts the records matching the filters.
func CountWhere(entity models.Entity, filters []Filter) (string, map[string]any) {
	c := newBuildContext()
	c.writef("SELECT count() AS total FROM %s", entity)
	writeWhere(c, filters)
	c.write(" GROUP ALL;")
	return c.sb.String(), c.vars
}

// Paginate builds the two-statement transaction that returns a page
// together with the total count of matching records, both evaluated under
// the same snapshot. The page is ordered by recency.
func Paginate(entity models.Entity, filters []Filter, limit, start int, projection string) (string, map[string]any) {
	if projection == "" {
		projection = "*"
	}
	c := newBuildContext()
	c.write("BEGIN TRANSACTION; ")
	c.writef("SELECT count() AS total FROM %s", entity)
	writeWhere(c, filters)
	c.write(" GROUP ALL; ")
	c.writef("SELECT %s FROM %s", projection, entity)
	writeWhere(c, filters)
	c.writef(" ORDER BY updatedAt DESC LIMIT %d START %d; ", limit, start)
	c.write("COMMIT TRANSACTION;")
	return c.sb.String(), c.vars
}

// Search builds a full-text search over the given indexed fields, ranked by
// relevance score.
func Search(entity models.Entity, fields []string, term string, limit, start int) (string, map[string]any) {
	c := newBuildContext()
	param := c.bind(term)
	c.writef("SELECT *, search::score(1) AS score FROM %s WHERE ", entity)
	for i, f := range fields {
		if i > 0 {
			c.write(" OR ")
		}
		c.writef("%s @1@ %s", escapeIdent(f), param)
	}
	c.writef(" ORDER BY score DESC LIMIT %d START %d;", limit, start)
	return c.sb.String(), c.vars
}

// Random builds a uniformly shuffled draw of records matching the filters.
func Random(entity models.Entity, filters []Filter, limit int) (string, map[string]any) {
	c := newBuildContext()
	c.writef("SELECT * FROM %s", entity)
	writeWhere(c, filters)
	c.writef(" ORDER BY rand() DESC LIMIT %d;", limit)
	return c.sb.String(), c.vars
}

// Relate builds an edge insertion between two bound records. Edge fields
// are written in key order so equal inputs produce equal statements.
func Relate(from any, edge string, to any, fields map[string]any) (string, map[string]any) {
	c := newBuildContext()
	c.writef("RELATE %s->%s->%s", c.bind(from), escapeIdent(edge), c.bind(to))
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		c.write(" SET ")
		for i, k := range keys {
			if i > 0 {
				c.write(", ")
			}
			c.writef("%s = %s", escapeIdent(k), c.bind(fields[k]))
		}
	}
	c.write(";")
	return c.sb.String(), c.vars
}

// SelectorBatch builds one select per selector inside a single transaction.
// Every select combines the shared plain filters with that selector's own
// equality predicate and per-selector limit, optionally expanding reference
// columns with FETCH.
func SelectorBatch(entity models.Entity, filters []Filter) (string, map[string]any) {
	plain, selectors := Selectors(filters)
	c := newBuildContext()
	c.write("BEGIN TRANSACTION; ")
	for _, sel := range selectors {
		c.writef("SELECT * FROM %s WHERE ", entity)
		for _, f := range plain {
			writeFilter(c, f)
			c.write(" AND ")
		}
		c.writef("%s = %s", escapeIdent(sel.Key), c.bind(sel.Value))
		if sel.Limit > 0 {
			c.writef(" LIMIT %d", sel.Limit)
		}
		if len(sel.Fetch) > 0 {
			cols := make([]string, len(sel.Fetch))
			for i, col := range sel.Fetch {
				cols[i] = escapeIdent(col)
			}
			c.writef(" FETCH %s", strings.Join(cols, ", "))
		}
		c.write("; ")
	}
	c.write("COMMIT TRANSACTION;")
	return c.sb.String(), c.vars
}

func writeWhere(c *buildContext, filters []Filter) {
	plain, _ := Selectors(filters)
	if len(plain) == 0 {
		return
	}
	c.write(" WHERE ")
	for i, f := range plain {
		if i > 0 {
			c.write(" AND ")
		}
		writeFilter(c, f)
	}
}

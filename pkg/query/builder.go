package query

import (
	"fmt"
	"strings"

	"github.com/provado/provado/pkg/models"
)

// buildContext accumulates statement text and the parameter bindings that
// go with it. Parameter names are generated with a per-statement counter so
// that repeated columns never collide.
type buildContext struct {
	sb     strings.Builder
	vars   map[string]any
	prefix string
	n      int
}

func newBuildContext() *buildContext {
	return &buildContext{vars: map[string]any{}, prefix: "p"}
}

func (c *buildContext) bind(v any) string {
	c.n++
	name := fmt.Sprintf("%s_%d", c.prefix, c.n)
	c.vars[name] = v
	return "$" + name
}

func (c *buildContext) write(s string) {
	c.sb.WriteString(s)
}

func (c *buildContext) writef(format string, args ...any) {
	fmt.Fprintf(&c.sb, format, args...)
}

// reservedIdents lists SurrealQL keywords that must be backtick-escaped when
// used as column names. The migration log's "table" column is the reason
// this exists.
var reservedIdents = map[string]struct{}{
	"table":  {},
	"order":  {},
	"group":  {},
	"limit":  {},
	"select": {},
	"where":  {},
	"value":  {},
}

func escapeIdent(ident string) string {
	if _, reserved := reservedIdents[strings.ToLower(ident)]; reserved {
		return "`" + ident + "`"
	}
	if strings.ContainsAny(ident, " -") {
		return "`" + ident + "`"
	}
	return ident
}

// BuildWhere renders the plain filters of the set as a WHERE clause body
// joined with AND, together with its parameter bindings. Selectors are
// skipped. An empty or selector-only set yields an empty clause and nil
// vars, leaving the statement unfiltered.
func BuildWhere(filters []Filter) (string, map[string]any) {
	plain, _ := Selectors(filters)
	if len(plain) == 0 {
		return "", nil
	}
	c := newBuildContext()
	for i, f := range plain {
		if i > 0 {
			c.write(" AND ")
		}
		writeFilter(c, f)
	}
	return c.sb.String(), c.vars
}

func writeFilter(c *buildContext, f Filter) {
	switch f := f.(type) {
	case SingleValue:
		c.writef("%s = %s", escapeIdent(f.Key), c.bind(f.Value))
	case Range:
		key := escapeIdent(f.Key)
		c.writef("%s >= %s AND %s <= %s", key, c.bind(f.From), key, c.bind(f.To))
	case MultipleValues:
		writeMultiple(c, f)
	}
}

func writeMultiple(c *buildContext, f MultipleValues) {
	key := escapeIdent(f.Key)
	if f.Condition == ConditionOr {
		// Parenthesized so the group composes with surrounding AND terms.
		c.write("(")
		for i, v := range f.Values {
			if i > 0 {
				c.write(" OR ")
			}
			c.writef("%s = %s", key, c.bind(v))
		}
		c.write(")")
		return
	}
	for i, v := range f.Values {
		if i > 0 {
			c.write(" AND ")
		}
		c.writef("%s CONTAINS %s", key, c.bind(v))
	}
}

// RelationProjection renders the SELECT projection that expands the given
// relations alongside the record's own fields: the whole record, plus one
// subquery per relation aliased under the relation's alias.
func RelationProjection(relations []models.Relation) string {
	var sb strings.Builder
	sb.WriteString("*")
	for _, rel := range relations {
		fields := "*"
		if len(rel.Fields) > 0 {
			escaped := make([]string, len(rel.Fields))
			for i, f := range rel.Fields {
				escaped[i] = escapeIdent(f)
			}
			fields = strings.Join(escaped, ", ")
		}
		switch rel.Cardinality {
		case models.CardinalityMultiple:
			fmt.Fprintf(&sb, ", (SELECT %s FROM %s WHERE id IN $parent.%s) AS %s",
				fields, rel.Entity, escapeIdent(rel.IDCol), escapeIdent(rel.Alias))
		default:
			fmt.Fprintf(&sb, ", (SELECT %s FROM %s WHERE id = $parent.%s)[0] AS %s",
				fields, rel.Entity, escapeIdent(rel.IDCol), escapeIdent(rel.Alias))
		}
	}
	return sb.String()
}

package models

// Cardinality says whether a relation column references one record or a list
// of records.
type Cardinality string

const (
	CardinalitySingle   Cardinality = "single"
	CardinalityMultiple Cardinality = "multiple"
)

// Relation describes a one-hop expansion of a reference column: the column's
// record reference is dereferenced and the referenced record (or a field
// subset of it) is projected into the result under Alias.
type Relation struct {
	// IDCol is the column on the owning record that holds the reference.
	IDCol string
	// Entity is the referenced logical table.
	Entity Entity
	// Cardinality distinguishes single-record from list-valued columns.
	Cardinality Cardinality
	// Alias is the result key the expansion is projected under.
	Alias string
	// Fields optionally restricts the projection to a field subset;
	// empty means the whole referenced record.
	Fields []string
}

// NormalizeRecord rewrites the record's id to its unqualified local form,
// in place. Safe on nil.
func NormalizeRecord(rec Record) Record {
	if rec == nil {
		return nil
	}
	if id, ok := rec["id"]; ok {
		rec["id"] = LocalID(id)
	}
	return rec
}

// NormalizeRecordWithRelations rewrites the record's own id plus, for every
// relation, the ids nested in the expanded alias and the reference column
// itself, so that nothing leaving the store carries qualified references.
func NormalizeRecordWithRelations(rec Record, relations []Relation) Record {
	if rec = NormalizeRecord(rec); rec == nil {
		return nil
	}
	for _, rel := range relations {
		switch rel.Cardinality {
		case CardinalityMultiple:
			normalizeRecordList(rec, rel.Alias)
			normalizeRefList(rec, rel.IDCol)
		default:
			if ref, ok := ParseRef(rec[rel.Alias]); ok && ref.IsExpanded() {
				NormalizeRecord(ref.Expanded)
			}
			if ref, ok := ParseRef(rec[rel.IDCol]); ok {
				rec[rel.IDCol] = ref.LocalID()
			}
		}
	}
	return rec
}

// NormalizeFetched localizes ids in columns that a FETCH clause expanded in
// place: expanded columns get their nested id rewritten, plain references
// are replaced by their local ID.
func NormalizeFetched(rec Record, cols []string) Record {
	if rec == nil {
		return nil
	}
	for _, col := range cols {
		ref, ok := ParseRef(rec[col])
		if !ok {
			continue
		}
		if ref.IsExpanded() {
			NormalizeRecord(ref.Expanded)
			continue
		}
		rec[col] = ref.LocalID()
	}
	return rec
}

func normalizeRecordList(rec Record, key string) {
	list, ok := rec[key].([]any)
	if !ok {
		return
	}
	for _, item := range list {
		if ref, ok := ParseRef(item); ok && ref.IsExpanded() {
			NormalizeRecord(ref.Expanded)
		}
	}
}

func normalizeRefList(rec Record, key string) {
	list, ok := rec[key].([]any)
	if !ok {
		return
	}
	local := make([]any, len(list))
	for i, item := range list {
		if ref, ok := ParseRef(item); ok {
			local[i] = ref.LocalID()
			continue
		}
		local[i] = item
	}
	rec[key] = local
}

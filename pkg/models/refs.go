package models

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	surreal "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Qualify builds the database-internal record reference for a local ID.
// It is plain concatenation: no validation is performed, and passing an
// already-qualified ID produces a double-qualified reference, so callers
// must only ever hand in local IDs.
func Qualify(entity Entity, uid string) string {
	return string(entity) + ":" + uid
}

// Ref builds the RecordID for a local ID. Reference values bound as query
// parameters must travel as RecordIDs, not qualified strings: the database
// compares link columns against record ids, and a string never matches.
func Ref(entity Entity, uid string) surreal.RecordID {
	return surreal.NewRecordID(string(entity), uid)
}

// LocalID extracts the unqualified local ID from whatever shape a record
// identifier arrives in: a qualified "entity:uid" string, a bare local ID,
// a SurrealDB RecordID, or a joined record carrying its own id field.
// A value it cannot interpret yields "" and a diagnostic log entry; it
// never fails.
func LocalID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		i := strings.Index(id, ":")
		if i < 0 {
			return id
		}
		uid := id[i+1:]
		if uid == "" {
			log.Warn().Str("id", id).Msg("record reference has an empty local id")
		}
		return uid
	case surreal.RecordID:
		return fmt.Sprint(id.ID)
	case *surreal.RecordID:
		if id == nil {
			return ""
		}
		return fmt.Sprint(id.ID)
	case Record:
		return LocalID(id["id"])
	case map[string]any:
		return LocalID(Record(id)["id"])
	default:
		log.Warn().Type("type", v).Msg("value is not a record reference")
		return ""
	}
}

// RefField is a reference-valued field exactly as the database returned it:
// either a plain record reference, or the referenced record itself when the
// query expanded the relation. Exactly one of the two variants is set.
type RefField struct {
	Reference string
	Expanded  Record
}

// ParseRef classifies a reference-valued field. The second return is false
// when the value is not a reference shape at all (nil, numbers, lists).
func ParseRef(v any) (RefField, bool) {
	switch ref := v.(type) {
	case string:
		return RefField{Reference: ref}, true
	case surreal.RecordID:
		return RefField{Reference: ref.String()}, true
	case *surreal.RecordID:
		if ref == nil {
			return RefField{}, false
		}
		return RefField{Reference: ref.String()}, true
	case Record:
		return RefField{Expanded: ref}, true
	case map[string]any:
		return RefField{Expanded: Record(ref)}, true
	default:
		return RefField{}, false
	}
}

// IsExpanded reports whether the field carries the joined record rather than
// a bare reference.
func (f RefField) IsExpanded() bool { return f.Expanded != nil }

// LocalID resolves the field to its unqualified local ID regardless of
// variant. Qualified syntax never leaves through this method.
func (f RefField) LocalID() string {
	if f.Expanded != nil {
		return LocalID(f.Expanded["id"])
	}
	return LocalID(f.Reference)
}

// Package models defines the logical tables of the exam-practice platform,
// the schema-less Record type rows are exchanged as, and the identifier codec
// that translates between SurrealDB record references and the unqualified IDs
// exposed to API consumers.
package models

import "time"

// Entity is a logical table name. Store callers pass one of the declared
// constants; free-form table names never reach the database.
type Entity string

const (
	EntityUsers        Entity = "users"
	EntityQuestions    Entity = "questions"
	EntityBoards       Entity = "boards"
	EntityExams        Entity = "exams"
	EntitySubjects     Entity = "subjects"
	EntityInstitutions Entity = "institutions"

	// EntityAnswered is the edge table recording which alternative a user
	// picked for a question.
	EntityAnswered Entity = "answered"

	// Pseudo-tables. EntityMigrations is the persisted migration log;
	// EntityDatabase keys database-level schema operations that do not
	// belong to any one table.
	EntityMigrations Entity = "migrations"
	EntityDatabase   Entity = "database"

	// Order entities reserved for the payment-provider integration.
	EntityOrders   Entity = "orders"
	EntityPayments Entity = "payments"
	EntityCharges  Entity = "charges"
)

func (e Entity) String() string { return string(e) }

// Record is a single schema-less row as returned by the database.
type Record map[string]any

// Str returns the named field as a string, or "" when absent or not a string.
func (r Record) Str(key string) string {
	s, _ := r[key].(string)
	return s
}

// Timestamp returns the current time in Unix milliseconds, the resolution
// createdAt/updatedAt fields are stored with.
func Timestamp() int64 {
	return time.Now().UnixMilli()
}

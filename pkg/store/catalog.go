package store

import "github.com/provado/provado/pkg/models"

// migrationOrder fixes the order RunAllMigrations walks the catalog in.
// The analyzer comes first because every search index references it.
var migrationOrder = []models.Entity{
	models.EntityDatabase,
	models.EntitySubjects,
	models.EntityInstitutions,
	models.EntityBoards,
	models.EntityQuestions,
	models.EntityExams,
	models.EntityUsers,
}

// migrationCatalog is the full set of schema definitions, keyed by the
// table they belong to. The simplePt analyzer tokenizes Portuguese text
// with edge n-grams so partial words match during autocomplete.
var migrationCatalog = map[models.Entity][]Migration{
	models.EntityDatabase: {{
		Name:      "simplePt",
		Kind:      MigrationAnalyzer,
		Table:     models.EntityDatabase,
		Statement: "DEFINE ANALYZER simplePt TOKENIZERS blank, class, punct FILTERS snowball(Portuguese), edgengram(1,3);",
	}},
	models.EntitySubjects: {{
		Name:      "nameIndex",
		Kind:      MigrationIndex,
		Table:     models.EntitySubjects,
		Statement: "DEFINE INDEX nameIndex ON TABLE subjects COLUMNS name SEARCH ANALYZER simplePt BM25 HIGHLIGHTS;",
	}},
	models.EntityInstitutions: {{
		Name:      "nameIndex",
		Kind:      MigrationIndex,
		Table:     models.EntityInstitutions,
		Statement: "DEFINE INDEX nameIndex ON TABLE institutions COLUMNS name SEARCH ANALYZER simplePt BM25 HIGHLIGHTS;",
	}},
	models.EntityBoards: {{
		Name:      "nameIndex",
		Kind:      MigrationIndex,
		Table:     models.EntityBoards,
		Statement: "DEFINE INDEX nameIndex ON TABLE boards COLUMNS name SEARCH ANALYZER simplePt BM25 HIGHLIGHTS;",
	}},
	models.EntityQuestions: {
		{
			Name:      "codeUniqueIndex",
			Kind:      MigrationIndex,
			Table:     models.EntityQuestions,
			Statement: "DEFINE INDEX codeUniqueIndex ON TABLE questions COLUMNS code UNIQUE;",
		},
		{
			Name:      "codeSearchIndex",
			Kind:      MigrationIndex,
			Table:     models.EntityQuestions,
			Statement: "DEFINE INDEX codeSearchIndex ON TABLE questions COLUMNS code SEARCH ANALYZER simplePt BM25 HIGHLIGHTS;",
		},
		{
			Name:      "promptSearchIndex",
			Kind:      MigrationIndex,
			Table:     models.EntityQuestions,
			Statement: "DEFINE INDEX promptSearchIndex ON TABLE questions COLUMNS prompt SEARCH ANALYZER simplePt BM25 HIGHLIGHTS;",
		},
	},
	models.EntityExams: {
		{
			Name:      "codeUniqueIndex",
			Kind:      MigrationIndex,
			Table:     models.EntityExams,
			Statement: "DEFINE INDEX codeUniqueIndex ON TABLE exams COLUMNS code UNIQUE;",
		},
		{
			Name:      "nameCodeIndex",
			Kind:      MigrationIndex,
			Table:     models.EntityExams,
			Statement: "DEFINE INDEX nameCodeIndex ON TABLE exams COLUMNS code, name SEARCH ANALYZER simplePt BM25 HIGHLIGHTS;",
		},
	},
	models.EntityUsers: {{
		Name:      "emailUniqueIndex",
		Kind:      MigrationIndex,
		Table:     models.EntityUsers,
		Statement: "DEFINE INDEX emailUniqueIndex ON TABLE users COLUMNS email UNIQUE;",
	}},
}

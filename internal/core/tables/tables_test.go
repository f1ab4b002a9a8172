package tables

import (
	"slices"
	"testing"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/grid"
)

func validatorFor(t *testing.T, key string) *grid.Validator {
	t.Helper()
	def, ok := core.Get(key)
	if !ok {
		t.Fatalf("table %q not registered", key)
	}
	v, err := grid.NewValidator(def.Columns, def.RowSchema)
	if err != nil {
		t.Fatalf("NewValidator(%s) error = %v", key, err)
	}
	return v
}

func TestRegistered(t *testing.T) {
	tests := []struct {
		key      string
		group    string
		identity string
		dbTable  string
	}{
		{key: "vocabulary", group: "Vocabulary", identity: "id", dbTable: "vocabulary_words"},
		{key: "flashcards", group: "Quizzing", identity: "id", dbTable: "flashcards"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			def, ok := core.Get(tt.key)
			if !ok {
				t.Fatalf("Get(%q) not found", tt.key)
			}
			if def.Info.Group != tt.group {
				t.Errorf("Group = %q, want %q", def.Info.Group, tt.group)
			}
			if def.IdentityColumn != tt.identity {
				t.Errorf("IdentityColumn = %q, want %q", def.IdentityColumn, tt.identity)
			}
			if def.DBTable != tt.dbTable {
				t.Errorf("DBTable = %q, want %q", def.DBTable, tt.dbTable)
			}
			for _, c := range def.CreateColumns() {
				if c.ID == tt.identity {
					t.Error("CreateColumns() includes the identity column")
				}
			}
		})
	}
}

func TestVocabularyRules(t *testing.T) {
	v := validatorFor(t, "vocabulary")

	tests := []struct {
		name      string
		cells     map[string]string
		wantError string // column id expected in the error map, "" for valid
	}{
		{
			name:  "learning word with review date",
			cells: map[string]string{"term": "casa", "definition": "house", "next_review": "2026-03-01"},
		},
		{
			name:      "learning word without review date",
			cells:     map[string]string{"term": "casa", "definition": "house"},
			wantError: "next_review",
		},
		{
			name:      "mastered word without difficulty",
			cells:     map[string]string{"term": "casa", "definition": "house", "mastered": "yes"},
			wantError: "difficulty",
		},
		{
			name:  "mastered word with difficulty",
			cells: map[string]string{"term": "casa", "definition": "house", "mastered": "yes", "difficulty": "2"},
		},
		{
			name:      "fractional difficulty",
			cells:     map[string]string{"term": "casa", "definition": "house", "mastered": "yes", "difficulty": "2.5"},
			wantError: "difficulty",
		},
		{
			name:      "tag with a space",
			cells:     map[string]string{"term": "casa", "definition": "house", "next_review": "2026-03-01", "tags": "home, two words"},
			wantError: "tags",
		},
		{
			name:      "unknown part of speech",
			cells:     map[string]string{"term": "casa", "definition": "house", "next_review": "2026-03-01", "part_of_speech": "article"},
			wantError: "part_of_speech",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, _ := core.Get("vocabulary")
			row := grid.NewBlankRow("r1", def.Columns)
			for k, val := range tt.cells {
				row.Cells[k] = val
			}
			errs := v.ValidateRow(row)
			if tt.wantError == "" {
				if errs != nil {
					t.Errorf("ValidateRow() = %v, want valid", errs)
				}
				return
			}
			if _, ok := errs[tt.wantError]; !ok {
				t.Errorf("ValidateRow() = %v, want an error on %q", errs, tt.wantError)
			}
		})
	}
}

func TestVocabularyTags_ColumnSeparator(t *testing.T) {
	def, _ := core.Get("vocabulary")
	cols := slices.Clone(def.Columns)
	for i := range cols {
		if cols[i].ID == "tags" {
			cols[i].Separator = "; "
		}
	}
	v, err := grid.NewValidator(cols, def.RowSchema)
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}

	tests := []struct {
		name    string
		tags    string
		wantErr bool
	}{
		{name: "separator with a space", tags: "home; pet", wantErr: false},
		{name: "tag with a space", tags: "home; two words", wantErr: true},
		{name: "comma is not the separator", tags: "home, pet", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := grid.NewBlankRow("r1", cols)
			row.Cells["term"] = "casa"
			row.Cells["definition"] = "house"
			row.Cells["next_review"] = "2026-03-01"
			row.Cells["tags"] = tt.tags

			_, gotErr := v.ValidateRow(row)["tags"]
			if gotErr != tt.wantErr {
				t.Errorf("tags %q error = %v, want %v (%v)", tt.tags, gotErr, tt.wantErr, v.ValidateRow(row))
			}
		})
	}
}

func TestFlashcardRules(t *testing.T) {
	v := validatorFor(t, "flashcards")
	def, _ := core.Get("flashcards")

	tests := []struct {
		name      string
		cells     map[string]string
		wantError string
	}{
		{
			name:  "active card with due date",
			cells: map[string]string{"deck": "Core", "front": "hola", "back": "hello", "due": "2026-02-01"},
		},
		{
			name:  "suspended card without due date",
			cells: map[string]string{"deck": "Core", "front": "hola", "back": "hello", "suspended": "true"},
		},
		{
			name:      "front equals back",
			cells:     map[string]string{"deck": "Core", "front": "hola", "back": "Hola", "due": "2026-02-01"},
			wantError: "back",
		},
		{
			name:      "ease below minimum",
			cells:     map[string]string{"deck": "Core", "front": "hola", "back": "hello", "due": "2026-02-01", "ease": "1"},
			wantError: "ease",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := grid.NewBlankRow("r1", def.Columns)
			for k, val := range tt.cells {
				row.Cells[k] = val
			}
			errs := v.ValidateRow(row)
			if tt.wantError == "" {
				if errs != nil {
					t.Errorf("ValidateRow() = %v, want valid", errs)
				}
				return
			}
			if _, ok := errs[tt.wantError]; !ok {
				t.Errorf("ValidateRow() = %v, want an error on %q", errs, tt.wantError)
			}
		})
	}
}

package tables

import (
	"strings"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/grid"
)

// Decks are the flashcard decks.
var Decks = []string{"Core", "Grammar", "Idioms", "Travel"}

func init() {
	registerQuizzingFlashcards()
}

func registerQuizzingFlashcards() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "flashcards",
			Group: "Quizzing",
			Label: "Flashcards",
		},
		Columns: []grid.Column{
			{ID: "id", Label: "ID", Type: grid.CellNumber, ReadOnly: true},
			{ID: "deck", Label: "Deck", Type: grid.CellSelect, Required: true, Options: Decks},
			{ID: "front", Label: "Front", Type: grid.CellText, Required: true},
			{ID: "back", Label: "Back", Type: grid.CellText, Required: true},
			{ID: "due", Label: "Due", Type: grid.CellDate},
			{ID: "suspended", Label: "Suspended", Type: grid.CellBoolean},
			{ID: "ease", Label: "Ease", Type: grid.CellNumber, Min: grid.Bound(1.3), Max: grid.Bound(5)},
		},
		RowSchema:      flashcardRules,
		IdentityColumn: "id",
	})
}

func flashcardRules(rec grid.Record) []grid.FieldError {
	front, _ := rec["front"].(string)
	back, _ := rec["back"].(string)
	if front != "" && strings.EqualFold(strings.TrimSpace(front), strings.TrimSpace(back)) {
		return []grid.FieldError{{Field: "back", Message: "back must differ from front"}}
	}
	suspended, _ := rec["suspended"].(bool)
	if !suspended && rec["due"] == nil {
		return []grid.FieldError{{Field: "due", Message: "active cards need a due date"}}
	}
	return nil
}

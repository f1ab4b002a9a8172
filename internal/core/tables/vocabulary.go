package tables

import (
	"errors"
	"strings"

	"github.com/JonMunkholm/pastegrid/internal/core"
	"github.com/JonMunkholm/pastegrid/internal/grid"
)

// PartsOfSpeech are the allowed part_of_speech values.
var PartsOfSpeech = []string{"noun", "verb", "adjective", "adverb", "pronoun", "preposition", "conjunction", "phrase"}

func init() {
	registerVocabularyWords()
}

func registerVocabularyWords() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   "vocabulary",
			Group: "Vocabulary",
			Label: "Words",
		},
		Columns: []grid.Column{
			{ID: "id", Label: "ID", Type: grid.CellNumber, ReadOnly: true},
			{ID: "term", Label: "Term", Type: grid.CellText, Required: true, Schema: singleLine},
			{ID: "definition", Label: "Definition", Type: grid.CellText, Required: true},
			{ID: "part_of_speech", Label: "Part of Speech", Type: grid.CellSelect, Options: PartsOfSpeech},
			{ID: "tags", Label: "Tags", Type: grid.CellMultiSelect, Schema: validTags},
			{ID: "difficulty", Label: "Difficulty", Type: grid.CellNumber, Min: grid.Bound(1), Max: grid.Bound(5), Validate: wholeNumber},
			{ID: "mastered", Label: "Mastered", Type: grid.CellBoolean, BoolFormat: grid.BoolYesNo},
			{ID: "next_review", Label: "Next Review", Type: grid.CellDate},
		},
		RowSchema:      vocabularyRules,
		IdentityColumn: "id",
		DBTable:        "vocabulary_words",
	})
}

// vocabularyRules: a mastered word needs a difficulty, a word still being
// learned needs a review date.
func vocabularyRules(rec grid.Record) []grid.FieldError {
	var errs []grid.FieldError
	mastered, _ := rec["mastered"].(bool)
	if mastered && rec["difficulty"] == nil {
		errs = append(errs, grid.FieldError{Field: "difficulty", Message: "mastered words need a difficulty"})
	}
	if !mastered && rec["next_review"] == nil {
		errs = append(errs, grid.FieldError{Field: "next_review", Message: "schedule a review for words not yet mastered"})
	}
	return errs
}

func singleLine(v any) error {
	s, _ := v.(string)
	if strings.ContainsAny(s, "\r\n") {
		return errors.New("must be a single line")
	}
	return nil
}

// validTags runs on the split tag list, so it follows the column's separator.
func validTags(v any) error {
	tags, _ := v.([]string)
	for _, tag := range tags {
		if strings.ContainsAny(tag, " \t") {
			return errors.New("tags cannot contain spaces")
		}
	}
	return nil
}

// wholeNumber rejects fractional values in a number column.
func wholeNumber(value string) error {
	if strings.Contains(strings.TrimSpace(value), ".") {
		return errors.New("must be a whole number")
	}
	return nil
}

package lesson_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/lesson"
)

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate
}

func TestUpdateLesson_Validate_partialUpdate(t *testing.T) {
	validate := newValidator(t)
	orig := lesson.Lesson{
		Title:       "Algebra",
		Description: "Linear equations",
		Objective:   "Solve for x",
	}

	// blank fields keep their original values
	ul := lesson.UpdateLesson{Title: "Algebra I"}
	if err := ul.Validate(context.Background(), orig, validate); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
	if ul.Title != "Algebra I" {
		t.Errorf("title = %q, want %q", ul.Title, "Algebra I")
	}
	if ul.Description != orig.Description {
		t.Errorf("description = %q, want original %q", ul.Description, orig.Description)
	}
	if ul.Objective != orig.Objective {
		t.Errorf("objective = %q, want original %q", ul.Objective, orig.Objective)
	}

	// provided fields win
	ul = lesson.UpdateLesson{Description: "Quadratic equations"}
	if err := ul.Validate(context.Background(), orig, validate); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
	if ul.Title != orig.Title {
		t.Errorf("title = %q, want original %q", ul.Title, orig.Title)
	}
	if ul.Description != "Quadratic equations" {
		t.Errorf("description = %q, want %q", ul.Description, "Quadratic equations")
	}
}

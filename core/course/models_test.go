package course_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/course"
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

func TestUpdateCourse_Validate_partialUpdate(t *testing.T) {
	validate := newValidator(t)
	orig := course.Course{
		CourseID:    "go-101",
		Title:       "Go Basics",
		Description: "An introduction",
	}

	// a title-only update keeps the original description
	uc := course.UpdateCourse{Title: "Go Fundamentals"}
	if err := uc.Validate(context.Background(), orig, validate); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
	if uc.Title != "Go Fundamentals" {
		t.Errorf("title = %q, want %q", uc.Title, "Go Fundamentals")
	}
	if uc.Description != orig.Description {
		t.Errorf("description = %q, want original %q", uc.Description, orig.Description)
	}

	// a description-only update keeps the original title
	uc = course.UpdateCourse{Description: "A deeper dive"}
	if err := uc.Validate(context.Background(), orig, validate); err != nil {
		t.Fatalf("Validate(): %v", err)
	}
	if uc.Title != orig.Title {
		t.Errorf("title = %q, want original %q", uc.Title, orig.Title)
	}
	if uc.Description != "A deeper dive" {
		t.Errorf("description = %q, want %q", uc.Description, "A deeper dive")
	}
}

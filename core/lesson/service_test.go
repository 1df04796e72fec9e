package lesson_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/lesson"
	dummydb "github.com/mwalimu/academia/storage/database/dummy"
)

func newTestService(t *testing.T) lesson.Service {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}
	return lesson.NewService(dummydb.NewLessonRepository(db))
}

func assertPrerequisiteError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	if !ok {
		t.Fatalf("expected *core.ValidationError, got %T: %v", errors.Cause(err), err)
	}
	if len(vErr.Fields) == 0 || vErr.Fields[0].Field != "prerequisites" {
		t.Errorf("expected a field error on prerequisites, got %+v", vErr.Fields)
	}
}

func TestService_Create_selfPrerequisite(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, lesson.NewLesson{
		LessonID:      "algebra-101",
		Title:         "Algebra",
		Prerequisites: []string{"algebra-101"},
	}, "instructor-id")
	assertPrerequisiteError(t, err)
}

func TestService_Create_unknownPrerequisite(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, lesson.NewLesson{
		LessonID:      "algebra-102",
		Title:         "Algebra II",
		Prerequisites: []string{"no-such-lesson"},
	}, "instructor-id")
	assertPrerequisiteError(t, err)
}

func TestService_Update_prerequisiteCycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, lesson.NewLesson{LessonID: "algebra-101", Title: "Algebra"}, "instructor-id")
	if err != nil {
		t.Fatalf("creating lesson A: %v", err)
	}
	b, err := svc.Create(ctx, lesson.NewLesson{
		LessonID:      "algebra-102",
		Title:         "Algebra II",
		Prerequisites: []string{a.ID},
	}, "instructor-id")
	if err != nil {
		t.Fatalf("creating lesson B: %v", err)
	}

	// A -> B -> A closes a cycle
	_, err = svc.Update(ctx, a.ID, lesson.UpdateLesson{Prerequisites: []string{b.ID}})
	assertPrerequisiteError(t, err)
}

func TestService_Update_validPrerequisiteChain(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, lesson.NewLesson{LessonID: "algebra-101", Title: "Algebra"}, "instructor-id")
	if err != nil {
		t.Fatalf("creating lesson A: %v", err)
	}
	b, err := svc.Create(ctx, lesson.NewLesson{LessonID: "algebra-102", Title: "Algebra II"}, "instructor-id")
	if err != nil {
		t.Fatalf("creating lesson B: %v", err)
	}

	updated, err := svc.Update(ctx, b.ID, lesson.UpdateLesson{Prerequisites: []string{a.ID}})
	if err != nil {
		t.Fatalf("updating lesson B: %v", err)
	}
	if len(updated.Prerequisites) != 1 || updated.Prerequisites[0] != a.ID {
		t.Errorf("prerequisites = %v, want [%s]", updated.Prerequisites, a.ID)
	}
}

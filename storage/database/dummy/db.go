// Package dummydb is an in-memory implementation of the domain repositories,
// used by service and handler tests.
package dummydb

import (
	"context"
	"sync"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/classroom"
	"github.com/mwalimu/academia/core/course"
	"github.com/mwalimu/academia/core/grade"
	"github.com/mwalimu/academia/core/lesson"
	"github.com/mwalimu/academia/core/user"
)

type (
	DB struct {
		user      *userTable
		lesson    *lessonTable
		course    *courseTable
		classroom *classroomTable
		grade     *gradeTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	lessonTable struct {
		sync.RWMutex
		table map[string]*lesson.Lesson
	}

	courseTable struct {
		sync.RWMutex
		table map[string]*course.Course
	}

	classroomTable struct {
		sync.RWMutex
		table map[string]*classroom.Classroom
	}

	gradeTable struct {
		sync.RWMutex
		table map[string]*grade.Grade
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:      &userTable{table: make(map[string]*user.User)},
		lesson:    &lessonTable{table: make(map[string]*lesson.Lesson)},
		course:    &courseTable{table: make(map[string]*course.Course)},
		classroom: &classroomTable{table: make(map[string]*classroom.Classroom)},
		grade:     &gradeTable{table: make(map[string]*grade.Grade)},
	}
	return db, nil
}

type transactor struct{}

var _ core.Transactor = (*transactor)(nil)

// NewTransactor returns a pass-through Transactor; the dummy tables are
// individually mutex-guarded instead.
func NewTransactor() core.Transactor {
	return &transactor{}
}

func (t *transactor) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

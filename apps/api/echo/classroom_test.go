package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/classroom"
	"github.com/mwalimu/academia/core/user"
)

func (app *testApp) createClassroom(t *testing.T, classroomID, owner string) classroom.Classroom {
	t.Helper()
	cls, err := app.clsRepo.CreateClassroom(context.Background(), classroom.Classroom{
		ClassroomID: classroomID,
		Title:       "Classroom " + classroomID,
		Owner:       owner,
		Status:      core.StatusPublished,
	})
	if err != nil {
		t.Fatalf("CreateClassroom(): %v", err)
	}
	return cls
}

func Test_classroomApi_addStudent(t *testing.T) {
	app := newTestApp(t)

	student := app.createUser(t, "Jane", "jane@test.cd", []string{user.RoleStudent})
	owner := app.createUser(t, "John", "john@test.cd", []string{user.RoleInstructor})
	other := app.createUser(t, "Jack", "jack@test.cd", []string{user.RoleInstructor})
	cls := app.createClassroom(t, "grade-12-A", owner.ID)

	ownerToken := getToken(t, owner)
	path := "/v1/classrooms/" + cls.ID + "/students/" + student.ID

	tests := []httpTest{
		{
			name: "Auth required", path: path,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Staff only", path: path, token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Owner only", path: path, token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Unknown classroom", path: "/v1/classrooms/no-such-id/students/" + student.ID, token: ownerToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "classroom not found"}),
		},
		{
			name: "Only students can be added", path: "/v1/classrooms/" + cls.ID + "/students/" + other.ID, token: ownerToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "user is not a student"}),
		},
		{
			name: "Add student", path: path, token: ownerToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]string{"success": "enrolled"}),
		},
		{
			name: "Double add is rejected", path: path, token: ownerToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "student is already enrolled"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// both sides of the enrollment are written
	gotCls, err := app.clsRepo.GetClassroomByID(context.Background(), cls.ID)
	if err != nil {
		t.Fatalf("GetClassroomByID(): %v", err)
	}
	if !gotCls.HasStudent(student.ID) {
		t.Error("student should be on the classroom roster")
	}
	gotUsr, err := app.usrRepo.GetUserByID(context.Background(), student.ID)
	if err != nil {
		t.Fatalf("GetUserByID(): %v", err)
	}
	if gotUsr.ClassroomID != cls.ID {
		t.Errorf("user classroom = %q, want %q", gotUsr.ClassroomID, cls.ID)
	}

	// staff removal reverses it
	req, rec := newAuthRequest(http.MethodDelete, path, ownerToken)
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("removal code = %d, want 204", rec.Code)
	}
	gotUsr, err = app.usrRepo.GetUserByID(context.Background(), student.ID)
	if err != nil {
		t.Fatalf("GetUserByID(): %v", err)
	}
	if gotUsr.ClassroomID != "" {
		t.Errorf("user classroom = %q, want cleared", gotUsr.ClassroomID)
	}
}

package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/course"
	"github.com/mwalimu/academia/core/user"
)

func (app *testApp) createCourse(t *testing.T, courseID string, status core.Status) course.Course {
	t.Helper()
	crs, err := app.crsRepo.CreateCourse(context.Background(), course.Course{
		CourseID: courseID,
		Title:    "Course " + courseID,
		Status:   status,
	})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return crs
}

func Test_courseApi_published(t *testing.T) {
	app := newTestApp(t)

	app.createCourse(t, "go-101", core.StatusPublished)
	app.createCourse(t, "go-draft", core.StatusDraft)

	// public endpoint, no token needed
	req, rec := newRequest(http.MethodGet, "/v1/courses/published")
	app.server.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	var courses []course.Course
	if err := json.Unmarshal(rec.Body.Bytes(), &courses); err != nil {
		t.Fatalf("unmarshalling courses: %v", err)
	}
	if len(courses) != 1 || courses[0].CourseID != "go-101" {
		t.Errorf("published catalog = %+v, want only go-101", courses)
	}
}

func Test_courseApi_enrol(t *testing.T) {
	app := newTestApp(t)

	student := app.createUser(t, "Jane", "jane@test.cd", []string{user.RoleStudent})
	instructor := app.createUser(t, "John", "john@test.cd", []string{user.RoleInstructor})
	crs := app.createCourse(t, "go-101", core.StatusPublished)

	studentToken := getToken(t, student)

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/courses/" + crs.ID + "/enrol",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Students only", path: "/v1/courses/" + crs.ID + "/enrol", token: getToken(t, instructor),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Unknown course", path: "/v1/courses/no-such-id/enrol", token: studentToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name: "Enrol", path: "/v1/courses/" + crs.ID + "/enrol", token: studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]string{"success": "enrolled"}),
		},
		{
			name: "Double enrol is rejected", path: "/v1/courses/" + crs.ID + "/enrol", token: studentToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "student is already enrolled"}),
		},
		{
			name: "Unenrol", path: "/v1/courses/" + crs.ID + "/unenrol", token: studentToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, map[string]string{"success": "unenrolled"}),
		},
		{
			name: "Second unenrol never silently succeeds", path: "/v1/courses/" + crs.ID + "/unenrol", token: studentToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "student is not enrolled"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// roster round-trips through the coordinator
	gotCrs, err := app.crsRepo.GetCourseByID(context.Background(), crs.ID)
	if err != nil {
		t.Fatalf("GetCourseByID(): %v", err)
	}
	if gotCrs.HasStudent(student.ID) {
		t.Error("course roster should be empty after unenrol")
	}
}

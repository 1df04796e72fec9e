package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/mwalimu/academia/apps/api/echo"
	"github.com/mwalimu/academia/core/user"
)

func Test_userApi_signup(t *testing.T) {
	app := newTestApp(t)

	valid := marchallObj(t, map[string]interface{}{
		"first_name":       "Jane",
		"last_name":        "Doe",
		"email":            "jane@test.cd",
		"password":         "V3ry$ecret",
		"password_confirm": "V3ry$ecret",
	})
	escalation := marchallObj(t, map[string]interface{}{
		"first_name":       "Evil",
		"last_name":        "Doe",
		"email":            "evil@test.cd",
		"password":         "V3ry$ecret",
		"password_confirm": "V3ry$ecret",
		"roles":            []string{user.RoleAdmin},
	})

	tests := []httpTest{
		{name: "Empty body fails validation", path: "/v1/auth/signup", body: []byte("{}"), wantCode: http.StatusBadRequest},
		{name: "Valid signup", path: "/v1/auth/signup", body: valid, wantCode: http.StatusCreated},
		{name: "Duplicate email", path: "/v1/auth/signup", body: valid, wantCode: http.StatusBadRequest},
		{
			name: "Role escalation is forbidden", path: "/v1/auth/signup", body: escalation, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("unmarshalling created user: %v", err)
				}
				if usr.ID == "" || usr.Email != "jane@test.cd" {
					t.Errorf("created user = %+v", usr)
				}
				if len(usr.Roles) != 1 || usr.Roles[0] != user.RoleStudent {
					t.Errorf("self-signup roles = %v, want [%s]", usr.Roles, user.RoleStudent)
				}
			}
		})
	}
}

func Test_userApi_login(t *testing.T) {
	app := newTestApp(t)

	app.createUser(t, "Jane", "jane@test.cd", []string{user.RoleStudent})
	inactive := false
	deactivated := app.createUser(t, "Gone", "gone@test.cd", []string{user.RoleStudent})
	deactivated.IsActive = &inactive
	if _, err := app.usrRepo.UpdateUser(context.Background(), deactivated, &inactive); err != nil {
		t.Fatalf("deactivating user: %v", err)
	}

	body := func(email, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Email: email, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "Unknown email", path: "/v1/auth/login", body: body("nope@test.cd", "V3ry$ecret"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", path: "/v1/auth/login", body: body("jane@test.cd", "nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", path: "/v1/auth/login", body: body("gone@test.cd", "V3ry$ecret"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "Valid credentials", path: "/v1/auth/login", body: body("jane@test.cd", "V3ry$ecret"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var res echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
					t.Fatalf("unmarshalling login response: %v", err)
				}
				if res.Token == "" {
					t.Error("expected a token")
				}
				if res.Role != "student" {
					t.Errorf("role = %q, want student", res.Role)
				}
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := newTestApp(t)

	student := app.createUser(t, "Jane", "jane@test.cd", []string{user.RoleStudent})
	admin := app.createUser(t, "Admin", "admin@test.cd", []string{user.RoleAdmin})

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Staff required", path: "/v1/users", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "Admin can list", path: "/v1/users", token: getToken(t, admin), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var users []user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
					t.Fatalf("unmarshalling users: %v", err)
				}
				if len(users) != 2 {
					t.Errorf("got %d users, want 2", len(users))
				}
			}
		})
	}
}

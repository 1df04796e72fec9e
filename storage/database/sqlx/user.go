package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/mwalimu/academia/core"
	"github.com/mwalimu/academia/core/user"
)

const userCols = `id, title, first_name, last_name, email, is_active, roles, password_hash, course_id, classroom_id, created_at, updated_at, last_login`

type userRow struct {
	ID           string         `db:"id"`
	Title        null.String    `db:"title"`
	FirstName    null.String    `db:"first_name"`
	LastName     null.String    `db:"last_name"`
	Email        null.String    `db:"email"`
	IsActive     null.Bool      `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash null.Bytes     `db:"password_hash"`
	CourseID     null.String    `db:"course_id"`
	ClassroomID  null.String    `db:"classroom_id"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

type userRepository struct {
	exec core.DBExecutor
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{exec: exec}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Title:        null.NewString(usr.Title, usr.Title != ""),
		FirstName:    null.NewString(usr.FirstName, usr.FirstName != ""),
		LastName:     null.NewString(usr.LastName, usr.LastName != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		IsActive:     null.BoolFromPtr(usr.IsActive),
		Roles:        usr.Roles,
		PasswordHash: null.BytesFrom(usr.PasswordHash),
		CourseID:     null.NewString(usr.CourseID, usr.CourseID != ""),
		ClassroomID:  null.NewString(usr.ClassroomID, usr.ClassroomID != ""),
		CreatedAt:    null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Title:        row.Title.String,
		FirstName:    row.FirstName.String,
		LastName:     row.LastName.String,
		Email:        row.Email.String,
		IsActive:     row.IsActive.Ptr(),
		Roles:        row.Roles,
		PasswordHash: row.PasswordHash.Bytes,
		CourseID:     row.CourseID.String,
		ClassroomID:  row.ClassroomID.String,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
		LastLogin:    row.LastLogin.Time,
	}
}

func (repo userRepository) fromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = ?`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	var exists bool
	if err = sqlx.GetContext(ctx, exe, &exists, exe.Rebind(query), inArgs...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := getExec(repo.exec, exec)

	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	query := exe.Rebind(`INSERT INTO "user" (` + userCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := exe.ExecContext(ctx, query,
		row.ID, row.Title, row.FirstName, row.LastName, row.Email, row.IsActive, row.Roles,
		row.PasswordHash, row.CourseID, row.ClassroomID, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	exe := getExec(repo.exec, exec)

	query := `SELECT ` + userCols + ` FROM "user"`
	var conds []string
	var args []interface{}

	if filter != nil {
		// users with FirstName, LastName or Email matching the search keyword
		if filter.Search != "" {
			conds = append(conds, `(first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?)`)
			val := searchPattern(filter.Search)
			args = append(args, val, val, val)
		}
		// users with any role that starts with any of the provided roles
		if len(filter.Roles) > 0 {
			roleConds := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roleConds = append(roleConds, `EXISTS (SELECT 1 FROM UNNEST(roles) user_role WHERE user_role ILIKE ?)`)
				args = append(args, role+"%")
			}
			conds = append(conds, "("+joinOr(roleConds)+")")
		}
		if filter.IsActive != nil {
			conds = append(conds, `is_active = ?`)
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			conds = append(conds, `created_at >= ?`)
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			conds = append(conds, `created_at <= ?`)
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	if len(conds) > 0 {
		query += ` WHERE ` + joinAnd(conds)
	}
	query += orderBy(ordering)

	var rows []userRow
	if err := sqlx.SelectContext(ctx, exe, &rows, exe.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.fromRows(rows), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string, exec ...core.DBExecutor) (user.User, error) {
	exe := getExec(repo.exec, exec)

	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}
	var row userRow
	query := exe.Rebind(`SELECT ` + userCols + ` FROM "user" WHERE id = ?`)
	if err := sqlx.GetContext(ctx, exe, &row, query, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (user.User, error) {
	exe := getExec(repo.exec, exec)

	var row userRow
	query := exe.Rebind(`SELECT ` + userCols + ` FROM "user" WHERE email = ?`)
	if err := sqlx.GetContext(ctx, exe, &row, query, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by email")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool, exec ...core.DBExecutor) (user.User, error) {
	exe := getExec(repo.exec, exec)

	// only save set fields
	sets := []string{`title = ?`, `first_name = ?`, `last_name = ?`, `email = ?`, `updated_at = ?`}
	args := []interface{}{
		null.NewString(usr.Title, usr.Title != ""), usr.FirstName, usr.LastName, usr.Email, usr.UpdatedAt.UTC(),
	}
	if usr.Roles != nil {
		sets = append(sets, `roles = ?`)
		args = append(args, pq.StringArray(usr.Roles))
	}
	if usr.PasswordHash != nil {
		sets = append(sets, `password_hash = ?`)
		args = append(args, usr.PasswordHash)
	}
	if isActive != nil {
		sets = append(sets, `is_active = ?`)
		args = append(args, *isActive)
	}
	args = append(args, usr.ID)

	query := exe.Rebind(`UPDATE "user" SET ` + joinComma(sets) + ` WHERE id = ?`)
	res, err := exe.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID, exe)
}

func (repo userRepository) SetLastLogin(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	exe := getExec(repo.exec, exec)

	query := exe.Rebind(`UPDATE "user" SET last_login = ? WHERE id = ?`)
	if _, err := exe.ExecContext(ctx, query, usr.LastLogin.UTC(), usr.ID); err != nil {
		return user.User{}, errors.Wrap(err, "setting last login")
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)

	query, args, err := sqlx.In(`DELETE FROM "user" WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting users")
	}
	if _, err = exe.ExecContext(ctx, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}

// conditionalRef runs an UPDATE guarded by a precondition on the current
// reference value and reports whether a row was written.
func (repo userRepository) conditionalRef(ctx context.Context, exe core.DBExecutor, query string, args ...interface{}) (bool, error) {
	res, err := exe.ExecContext(ctx, exe.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (repo userRepository) ClaimUserCourse(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (bool, error) {
	exe := getExec(repo.exec, exec)
	return repo.conditionalRef(ctx, exe,
		`UPDATE "user" SET course_id = ?, updated_at = now() WHERE id = ? AND course_id IS NULL`,
		courseID, userID)
}

func (repo userRepository) ClearUserCourse(ctx context.Context, userID, courseID string, exec ...core.DBExecutor) (bool, error) {
	exe := getExec(repo.exec, exec)
	return repo.conditionalRef(ctx, exe,
		`UPDATE "user" SET course_id = NULL, updated_at = now() WHERE id = ? AND course_id = ?`,
		userID, courseID)
}

func (repo userRepository) ClaimUserClassroom(ctx context.Context, userID, classroomID string, exec ...core.DBExecutor) (bool, error) {
	exe := getExec(repo.exec, exec)
	return repo.conditionalRef(ctx, exe,
		`UPDATE "user" SET classroom_id = ?, updated_at = now() WHERE id = ? AND classroom_id IS NULL`,
		classroomID, userID)
}

func (repo userRepository) ClearUserClassroom(ctx context.Context, userID, classroomID string, exec ...core.DBExecutor) (bool, error) {
	exe := getExec(repo.exec, exec)
	return repo.conditionalRef(ctx, exe,
		`UPDATE "user" SET classroom_id = NULL, updated_at = now() WHERE id = ? AND classroom_id = ?`,
		userID, classroomID)
}

func (repo userRepository) ClearClassroomRefs(ctx context.Context, classroomID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)
	query := exe.Rebind(`UPDATE "user" SET classroom_id = NULL, updated_at = now() WHERE classroom_id = ?`)
	if _, err := exe.ExecContext(ctx, query, classroomID); err != nil {
		return errors.Wrap(err, "clearing classroom refs")
	}
	return nil
}

func (repo userRepository) ClearCourseRefs(ctx context.Context, courseID string, exec ...core.DBExecutor) error {
	exe := getExec(repo.exec, exec)
	query := exe.Rebind(`UPDATE "user" SET course_id = NULL, updated_at = now() WHERE course_id = ?`)
	if _, err := exe.ExecContext(ctx, query, courseID); err != nil {
		return errors.Wrap(err, "clearing course refs")
	}
	return nil
}

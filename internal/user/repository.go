// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskispace/api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	IncrementTokenVersion(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, params ListUsersParams) ([]User, int, error)
}

const userColumns = `
	id, email, password_hash, name, role, token_version,
	created_at, updated_at, deleted_at`

type repository struct {
	db  core.DBTX
	now func() time.Time
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db, now: time.Now}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	now := r.now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, role, token_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Role, user.TokenVersion, now,
	)
	if core.IsDuplicateKeyError(err) {
		return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *repository) findOne(ctx context.Context, column, value string) (*User, error) {
	var user User
	err := r.db.GetContext(ctx, &user,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1 AND deleted_at IS NULL`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by %s: %w", column, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by %s: %w", column, err)
	}
	return &user, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, "id", id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *repository) Update(ctx context.Context, user *User) error {
	now := r.now().UTC()
	if err := r.execOne(ctx, "update user", `
		UPDATE users SET name = $2, role = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL`,
		user.ID, user.Name, user.Role, now,
	); err != nil {
		return err
	}
	user.UpdatedAt = now
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, "update password", `
		UPDATE users SET password_hash = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL`,
		id, passwordHash, r.now().UTC(),
	)
}

// IncrementTokenVersion invalidates every access token issued so far.
func (r *repository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.execOne(ctx, "increment token version", `
		UPDATE users SET token_version = token_version + 1, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`,
		id, r.now().UTC(),
	)
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	return r.execOne(ctx, "delete user", `
		UPDATE users SET deleted_at = $2, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL`,
		id, r.now().UTC(),
	)
}

func (r *repository) List(ctx context.Context, params ListUsersParams) ([]User, int, error) {
	page := params.Page.Clamp(defaultUserPage, maxUserPage)

	where := []string{"deleted_at IS NULL"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.Search != "" {
		p := arg("%" + escapeLike(strings.ToLower(params.Search)) + "%")
		where = append(where, fmt.Sprintf(
			`(LOWER(email) LIKE %s ESCAPE '\' OR LOWER(name) LIKE %s ESCAPE '\')`, p, p))
	}
	if params.Role != "" {
		where = append(where, "role = "+arg(params.Role))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users WHERE `+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		userColumns, clause, arg(page.Size), arg(page.Offset()))

	users := []User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *repository) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

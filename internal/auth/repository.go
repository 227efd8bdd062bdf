package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"hotelapi/pkg/db"
)

type User struct {
	ID           int64
	Login        string
	Name         string
	PasswordHash string
	IsAdmin      bool
	Active       bool
}

type KeyRecord struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	Scope     string    `json:"scope"`
	CreatedAt time.Time `json:"created_at"`

	hash    string
	index   string
	revoked bool
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func (r *Repository) UserByID(ctx context.Context, id int64) (*User, error) {
	const q = `
SELECT id, login, name, COALESCE(password_hash, ''), is_admin, active
FROM users
WHERE id = $1
`
	return scanUser(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) UserByLogin(ctx context.Context, login string) (*User, error) {
	const q = `
SELECT id, login, name, COALESCE(password_hash, ''), is_admin, active
FROM users
WHERE lower(login) = lower($1)
`
	return scanUser(r.db.QueryRow(ctx, q, login))
}

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Login, &u.Name, &u.PasswordHash, &u.IsAdmin, &u.Active); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) TouchLogin(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, userID)
	return err
}

func (r *Repository) CreateKey(ctx context.Context, userID int64, name, scope, index, hash string) (int64, error) {
	const q = `
INSERT INTO api_keys (user_id, name, scope, key_index, key_hash)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	var id int64
	err := r.db.QueryRow(ctx, q, userID, name, scope, index, hash).Scan(&id)
	return id, err
}

// ActiveKeysByIndex returns the unrevoked keys sharing an index prefix.
func (r *Repository) ActiveKeysByIndex(ctx context.Context, index string) ([]KeyRecord, error) {
	const q = `
SELECT id, user_id, name, scope, created_at, key_hash
FROM api_keys
WHERE key_index = $1 AND revoked_at IS NULL
`
	rows, err := r.db.Query(ctx, q, index)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KeyRecord
	for rows.Next() {
		var k KeyRecord
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.Scope, &k.CreatedAt, &k.hash); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *Repository) KeysByUser(ctx context.Context, userID int64) ([]KeyRecord, error) {
	const q = `
SELECT id, user_id, name, scope, created_at
FROM api_keys
WHERE user_id = $1 AND revoked_at IS NULL
ORDER BY created_at DESC, id DESC
`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []KeyRecord{}
	for rows.Next() {
		var k KeyRecord
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.Scope, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (r *Repository) KeyByID(ctx context.Context, id int64) (*KeyRecord, error) {
	const q = `
SELECT id, user_id, name, scope, created_at
FROM api_keys
WHERE id = $1 AND revoked_at IS NULL
`
	var k KeyRecord
	if err := r.db.QueryRow(ctx, q, id).Scan(&k.ID, &k.UserID, &k.Name, &k.Scope, &k.CreatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return &k, nil
}

func (r *Repository) RevokeKey(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET revoked_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *Repository) TouchKey(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, id)
	return err
}

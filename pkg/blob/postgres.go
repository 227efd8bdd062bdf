package blob

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"hotelapi/pkg/db"
)

// Postgres keeps payloads in the document_blobs table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{db: pool}
}

func (p *Postgres) Put(ctx context.Context, key, contentType string, data []byte) error {
	const q = `
INSERT INTO document_blobs (key, content_type, data)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET content_type = EXCLUDED.content_type, data = EXCLUDED.data
`
	_, err := p.db.Exec(ctx, q, key, contentType, data)
	return err
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT data FROM document_blobs WHERE key = $1`
	var data []byte
	if err := p.db.QueryRow(ctx, q, key).Scan(&data); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM document_blobs WHERE key = $1`
	_, err := p.db.Exec(ctx, q, key)
	return err
}

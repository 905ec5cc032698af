package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/l1jgo/entkit/internal/asset"
)

// AssetRepo stores asset content in the assets table. It is an asset.Source
// and an asset.Lister.
type AssetRepo struct {
	db *DB
}

func NewAssetRepo(db *DB) *AssetRepo {
	return &AssetRepo{db: db}
}

// Read returns the content stored at path, or asset.ErrNotFound.
func (r *AssetRepo) Read(ctx context.Context, path string) ([]byte, error) {
	var content []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT content FROM assets WHERE path = $1`, path,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", path, asset.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read asset %s: %w", path, err)
	}
	return content, nil
}

// List returns every stored path below dir, sorted.
func (r *AssetRepo) List(ctx context.Context, dir string) ([]string, error) {
	prefix := strings.TrimSuffix(dir, "/")
	if prefix != "" && prefix != "." {
		prefix += "/"
	} else {
		prefix = ""
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT path FROM assets WHERE starts_with(path, $1) ORDER BY path`, prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list assets %s: %w", dir, err)
	}
	paths, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list assets %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, asset.ErrNotFound)
	}
	return paths, nil
}

// Put inserts or replaces the content stored at path.
func (r *AssetRepo) Put(ctx context.Context, path string, content []byte) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO assets (path, content, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (path) DO UPDATE SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at`,
		path, content, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("put asset %s: %w", path, err)
	}
	return nil
}

// Delete removes path and reports whether it existed.
func (r *AssetRepo) Delete(ctx context.Context, path string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM assets WHERE path = $1`, path)
	if err != nil {
		return false, fmt.Errorf("delete asset %s: %w", path, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Package devicesim implements a local stand-in for the AWTRIX HTTP control
// API, so the upload pipeline can be exercised without hardware on the desk.
// Uploaded files land on disk under a data directory; an SQLite index keeps
// the metadata the /list endpoint serves.
package devicesim

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

const schema = `
CREATE TABLE IF NOT EXISTS uploads (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    path         TEXT NOT NULL UNIQUE,
    size         INTEGER NOT NULL,
    content_type TEXT NOT NULL DEFAULT '',
    uploaded_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_uploads_path ON uploads(path);
`

// Upload is one file the simulated device has accepted.
type Upload struct {
	ID          int64     `db:"id" json:"id"`
	Path        string    `db:"path" json:"path"`
	Size        int64     `db:"size" json:"size"`
	ContentType string    `db:"content_type" json:"content_type"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// Store persists uploaded files and their index.
type Store struct {
	baseDir string
	db      *sqlx.DB
}

// NewStore opens (or creates) the data directory and the SQLite index.
func NewStore(baseDir, dbPath string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// WAL allows reads during writes; busy_timeout waits out lock contention.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{baseDir: baseDir, db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// normalize cleans a device-side path into the canonical rooted form the
// index uses, collapsing any ".." segments so uploads cannot escape baseDir.
func normalize(devicePath string) string {
	return path.Clean("/" + strings.TrimPrefix(devicePath, "/"))
}

// localPath maps a device-side path to its location under baseDir.
func (s *Store) localPath(devicePath string) string {
	rel := strings.TrimPrefix(normalize(devicePath), "/")
	return filepath.Join(s.baseDir, filepath.FromSlash(rel))
}

// Save writes the file to disk and upserts its index row. Re-uploading the
// same path overwrites, like the real device does.
func (s *Store) Save(ctx context.Context, devicePath string, data []byte, contentType string) error {
	clean := normalize(devicePath)
	if clean == "/" {
		return fmt.Errorf("invalid upload path %q", devicePath)
	}

	local := s.localPath(clean)
	if err := os.MkdirAll(filepath.Dir(local), 0755); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}
	if err := os.WriteFile(local, data, 0644); err != nil {
		return fmt.Errorf("writing upload: %w", err)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uploads (path, size, content_type)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			content_type = excluded.content_type,
			uploaded_at = CURRENT_TIMESTAMP
	`, clean, len(data), contentType)
	if err != nil {
		return fmt.Errorf("indexing upload %s: %w", clean, err)
	}
	return nil
}

// List returns the uploads stored under dir, ordered by path.
func (s *Store) List(ctx context.Context, dir string) ([]Upload, error) {
	prefix := normalize(dir)
	if prefix != "/" {
		prefix += "/"
	}

	var uploads []Upload
	err := s.db.SelectContext(ctx, &uploads,
		"SELECT * FROM uploads WHERE path LIKE ? ORDER BY path ASC",
		prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("listing uploads under %s: %w", dir, err)
	}
	return uploads, nil
}

// Read returns the stored bytes for a device-side path.
func (s *Store) Read(devicePath string) ([]byte, error) {
	data, err := os.ReadFile(s.localPath(devicePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no upload at %s", normalize(devicePath))
		}
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

// Count returns the total number of stored uploads.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM uploads")
	return count, err
}

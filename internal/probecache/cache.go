package probecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"bitrateviewer/internal/logging"
	"bitrateviewer/internal/media/ffprobe"
)

const (
	// DatabaseName is the file created inside the cache directory.
	DatabaseName = "probe.db"
	lockName     = "probe.lock"

	lockRetryDelay = 50 * time.Millisecond
)

// ErrLocked is returned when the writer lock could not be acquired before
// the context ended.
var ErrLocked = errors.New("probe cache locked by another process")

// Key identifies one version of a file on disk.
type Key struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// KeyFor stats path and returns its cache key.
func KeyFor(path string) (Key, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Key{}, fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Key{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Key{}, fmt.Errorf("%s is a directory", path)
	}
	return Key{Path: abs, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Cache is a SQLite-backed store of probe results.
type Cache struct {
	db     *sql.DB
	path   string
	lock   *flock.Flock
	logger *slog.Logger

	writeMu sync.Mutex
}

// Open creates dir if needed and opens (or creates) the cache database in it.
func Open(dir string, logger *slog.Logger) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("probe cache: empty directory")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	dbPath := filepath.Join(dir, DatabaseName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{
		db:     db,
		path:   dbPath,
		lock:   flock.New(filepath.Join(dir, lockName)),
		logger: logging.NewComponentLogger(logger, "probecache"),
	}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Close closes the database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// withWriteLock runs fn while holding both the in-process mutex and the
// cross-process lock file.
func (c *Cache) withWriteLock(ctx context.Context, fn func() error) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ok, err := c.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrLocked, ctx.Err())
		}
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	defer func() {
		if err := c.lock.Unlock(); err != nil {
			c.logger.Warn("failed to release cache lock", logging.Error(err))
		}
	}()
	return fn()
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// upsertFile makes sure a files row exists for key, dropping anything stored
// for an older version of the file.
func upsertFile(ctx context.Context, tx *sql.Tx, key Key) error {
	modTime := key.ModTime.UnixNano()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM files WHERE path = ? AND (size <> ? OR mod_time <> ?)",
		key.Path, key.Size, modTime,
	); err != nil {
		return fmt.Errorf("drop stale entry: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO files (path, size, mod_time, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(path) DO NOTHING`,
		key.Path, key.Size, modTime, timestamp(),
	); err != nil {
		return fmt.Errorf("insert file entry: %w", err)
	}
	return nil
}

// LoadMetadata returns the cached ffprobe JSON for key.
func (c *Cache) LoadMetadata(ctx context.Context, key Key) ([]byte, bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT metadata_json FROM files WHERE path = ? AND size = ? AND mod_time = ? AND metadata_json IS NOT NULL",
		key.Path, key.Size, key.ModTime.UnixNano(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load metadata: %w", err)
	}
	return data, true, nil
}

// SaveMetadata stores the ffprobe JSON for key.
func (c *Cache) SaveMetadata(ctx context.Context, key Key, data []byte) error {
	return c.withWriteLock(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := upsertFile(ctx, tx, key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE files SET metadata_json = ?, updated_at = ? WHERE path = ?",
			data, timestamp(), key.Path,
		); err != nil {
			return fmt.Errorf("store metadata: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit metadata: %w", err)
		}
		c.logger.Debug("metadata cached", logging.String(logging.FieldFile, key.Path))
		return nil
	})
}

// LoadPackets returns the cached packets of one video stream in the order
// they were stored.
func (c *Cache) LoadPackets(ctx context.Context, key Key, streamIndex int) ([]ffprobe.Packet, bool, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT ps.packet_count FROM packet_sets ps
         JOIN files f ON f.path = ps.path
         WHERE ps.path = ? AND ps.stream_index = ? AND f.size = ? AND f.mod_time = ?`,
		key.Path, streamIndex, key.Size, key.ModTime.UnixNano(),
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load packet set: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT pts, dts, duration, size, flags FROM packets
         WHERE path = ? AND stream_index = ? ORDER BY seq`,
		key.Path, streamIndex,
	)
	if err != nil {
		return nil, false, fmt.Errorf("query packets: %w", err)
	}
	defer rows.Close()

	packets := make([]ffprobe.Packet, 0, count)
	for rows.Next() {
		var (
			pts, dts, duration sql.NullFloat64
			size               sql.NullInt64
			p                  ffprobe.Packet
		)
		if err := rows.Scan(&pts, &dts, &duration, &size, &p.Flags); err != nil {
			return nil, false, fmt.Errorf("scan packet: %w", err)
		}
		p.PTSTime = floatPtr(pts)
		p.DTSTime = floatPtr(dts)
		p.DurationTime = floatPtr(duration)
		if size.Valid {
			v := size.Int64
			p.Size = &v
		}
		packets = append(packets, p)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate packets: %w", err)
	}
	if len(packets) != count {
		c.logger.Warn("cached packet set incomplete, ignoring",
			logging.String(logging.FieldFile, key.Path),
			logging.Int("expected", count),
			logging.Int("found", len(packets)),
		)
		return nil, false, nil
	}
	return packets, true, nil
}

// SavePackets replaces the cached packets of one video stream.
func (c *Cache) SavePackets(ctx context.Context, key Key, streamIndex int, packets []ffprobe.Packet) error {
	return c.withWriteLock(ctx, func() error {
		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if err := upsertFile(ctx, tx, key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM packet_sets WHERE path = ? AND stream_index = ?",
			key.Path, streamIndex,
		); err != nil {
			return fmt.Errorf("drop packet set: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO packet_sets (path, stream_index, packet_count, created_at) VALUES (?, ?, ?, ?)",
			key.Path, streamIndex, len(packets), timestamp(),
		); err != nil {
			return fmt.Errorf("insert packet set: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx,
			"INSERT INTO packets (path, stream_index, seq, pts, dts, duration, size, flags) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		)
		if err != nil {
			return fmt.Errorf("prepare packet insert: %w", err)
		}
		defer stmt.Close()
		for seq, p := range packets {
			if _, err := stmt.ExecContext(ctx,
				key.Path, streamIndex, seq,
				nullFloat(p.PTSTime), nullFloat(p.DTSTime), nullFloat(p.DurationTime), nullInt(p.Size), p.Flags,
			); err != nil {
				return fmt.Errorf("insert packet %d: %w", seq, err)
			}
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit packets: %w", err)
		}
		c.logger.Debug("packets cached",
			logging.String(logging.FieldFile, key.Path),
			logging.Int("stream", streamIndex),
			logging.Int("packets", len(packets)),
		)
		return nil
	})
}

// Clear removes every cached entry and returns how many files were dropped.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	var removed int64
	err := c.withWriteLock(ctx, func() error {
		res, err := c.db.ExecContext(ctx, "DELETE FROM files")
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed, err
}

// Stats reports the number of cached files and packet rows.
func (c *Cache) Stats(ctx context.Context) (files, packets int64, err error) {
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM files").Scan(&files); err != nil {
		return 0, 0, fmt.Errorf("count files: %w", err)
	}
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM packets").Scan(&packets); err != nil {
		return 0, 0, fmt.Errorf("count packets: %w", err)
	}
	return files, packets, nil
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

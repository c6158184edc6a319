// Package registry keeps a local SQLite mirror of every session
// descriptor this server creates or touches.
//
// The gateway remains the source of truth for memory content; the
// mirror exists so aggregate views (platform summaries, context-type
// breakdowns, known-session lookups) are answered locally instead of
// fanning out one gateway call per session.
package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aaronwhaley/zep-mcp/internal/session"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ErrNotFound is returned when a session id has no mirrored row.
var ErrNotFound = errors.New("registry: session not found")

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds registry configuration.
type Config struct {
	DataDir       string
	RetentionDays int
}

// DefaultConfig returns the default registry configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:       filepath.Join(home, ".zep-mcp"),
		RetentionDays: 365,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the descriptor mirror backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// Stats holds aggregate counts over the mirrored sessions.
type Stats struct {
	TotalSessions int            `json:"total_sessions"`
	TotalUsers    int            `json:"total_users"`
	ByPlatform    map[string]int `json:"by_platform"`
	ByContextType map[string]int `json:"by_context_type"`
}

// New creates a Store with the given configuration. It creates the
// data directory if needed, opens SQLite with WAL mode, and runs
// migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("registry: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "registry.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("registry: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("registry: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("registry: migration: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			session_id   TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			platform     TEXT NOT NULL,
			context      TEXT NOT NULL DEFAULT '',
			context_type TEXT NOT NULL DEFAULT 'general',
			project      TEXT NOT NULL DEFAULT '',
			tags         TEXT,
			privacy      TEXT NOT NULL DEFAULT 'normal',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_user     ON sessions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_sessions_platform ON sessions(platform);
		CREATE INDEX IF NOT EXISTS idx_sessions_type     ON sessions(context_type);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Upsert inserts or refreshes the mirrored row for a descriptor.
// created_at is kept from the first insert; everything else follows
// the latest write.
func (s *Store) Upsert(d session.Descriptor) error {
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tags, err := encodeTags(d.Tags)
	if err != nil {
		return fmt.Errorf("registry: encode tags: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (session_id, user_id, platform, context, context_type, project, tags, privacy, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			user_id      = excluded.user_id,
			platform     = excluded.platform,
			context      = excluded.context,
			context_type = excluded.context_type,
			project      = excluded.project,
			tags         = excluded.tags,
			privacy      = excluded.privacy,
			updated_at   = excluded.updated_at`,
		d.SessionID, d.UserID, string(d.Platform), d.Context, string(d.ContextType),
		d.Project, tags, d.Privacy,
		createdAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("registry: upsert session: %w", err)
	}
	return nil
}

// PruneExpired removes rows older than the configured retention.
func (s *Store) PruneExpired() (int64, error) {
	return s.Prune(time.Now().UTC().AddDate(0, 0, -s.cfg.RetentionDays))
}

// Prune deletes mirrored rows created before cutoff and reports how
// many were removed.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(
		`DELETE FROM sessions WHERE created_at < ?`,
		cutoff.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("registry: prune: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("registry: prune: %w", err)
	}
	return n, nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

const descriptorColumns = `session_id, user_id, platform, context, context_type, project, tags, privacy, created_at`

// Get retrieves one mirrored descriptor by session id.
func (s *Store) Get(sessionID string) (*session.Descriptor, error) {
	row := s.db.QueryRow(
		`SELECT `+descriptorColumns+` FROM sessions WHERE session_id = ?`, sessionID,
	)
	d, err := scanDescriptor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get session: %w", err)
	}
	return d, nil
}

// ForUser returns every mirrored descriptor owned by a user, newest
// first.
func (s *Store) ForUser(userID string) ([]session.Descriptor, error) {
	rows, err := s.db.Query(
		`SELECT `+descriptorColumns+` FROM sessions WHERE user_id = ? ORDER BY created_at DESC, session_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("registry: sessions for user: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []session.Descriptor
	for rows.Next() {
		d, err := scanDescriptor(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: sessions for user: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// PlatformBreakdown counts a user's sessions per platform, restricted
// to rows created at or after since.
func (s *Store) PlatformBreakdown(userID string, since time.Time) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT platform, COUNT(*)
		FROM sessions
		WHERE user_id = ? AND created_at >= ?
		GROUP BY platform`,
		userID, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("registry: platform breakdown: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, fmt.Errorf("registry: platform breakdown: %w", err)
		}
		out[platform] = count
	}
	return out, rows.Err()
}

// Stats returns aggregate counts across all mirrored sessions.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{
		ByPlatform:    make(map[string]int),
		ByContextType: make(map[string]int),
	}

	err := s.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT user_id) FROM sessions`,
	).Scan(&stats.TotalSessions, &stats.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("registry: stats: %w", err)
	}

	if err := s.countBy("platform", stats.ByPlatform); err != nil {
		return nil, err
	}
	if err := s.countBy("context_type", stats.ByContextType); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) countBy(column string, into map[string]int) error {
	rows, err := s.db.Query(
		`SELECT ` + column + `, COUNT(*) FROM sessions GROUP BY ` + column,
	)
	if err != nil {
		return fmt.Errorf("registry: stats by %s: %w", column, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("registry: stats by %s: %w", column, err)
		}
		into[key] = count
	}
	return rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDescriptor(row rowScanner) (*session.Descriptor, error) {
	var (
		d         session.Descriptor
		platform  string
		ctxType   string
		tags      *string
		createdAt string
	)
	if err := row.Scan(
		&d.SessionID, &d.UserID, &platform, &d.Context, &ctxType,
		&d.Project, &tags, &d.Privacy, &createdAt,
	); err != nil {
		return nil, err
	}
	d.Platform = session.ParsePlatform(platform)
	d.ContextType = session.ParseContextType(ctxType)
	d.Tags = decodeTags(tags)
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		d.CreatedAt = t
	}
	return &d, nil
}

func encodeTags(tags []string) (*string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	v := string(data)
	return &v, nil
}

func decodeTags(raw *string) []string {
	if raw == nil || *raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(*raw), &tags); err != nil {
		return nil
	}
	return tags
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"duyurubot/internal/announce"
	"duyurubot/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a recipient id has no subscriber record.
// Callers use it to tell "never registered" apart from "flag is off".
var ErrNotFound = errors.New("recipient not found")

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Store is the bot's only persistence layer. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	log logx.Logger

	// One writer or reader at a time across the whole store.
	mu sync.Mutex
}

// Open opens (creating if needed) the SQLite database and runs migrations.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	if cfg.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			log.Warn("pragma failed", logx.String("pragma", p), logx.Err(err))
		}
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// table maps a category to its fixed announcement relation.
// The mapping is closed: SQL is only ever assembled from these constants.
func table(cat announce.Category) string {
	switch cat {
	case announce.Main:
		return "main_announcements"
	case announce.Yadyok:
		return "yadyok_announcements"
	case announce.MIS:
		return "mis_announcements"
	}
	panic(fmt.Sprintf("storage: invalid category %d", int(cat)))
}

// flagColumn maps a category to its subscriber flag column.
func flagColumn(cat announce.Category) string {
	switch cat {
	case announce.Main:
		return "main_on"
	case announce.Yadyok:
		return "yadyok_on"
	case announce.MIS:
		return "mis_on"
	}
	panic(fmt.Sprintf("storage: invalid category %d", int(cat)))
}

// ---- Seen-set operations ----

// IsKnown reports whether the trimmed text is already persisted for cat.
func (s *Store) IsKnown(ctx context.Context, cat announce.Category, text string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM `+table(cat)+` WHERE text = ?`, strings.TrimSpace(text),
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// KnownSet loads the full seen-set for cat. One query per sweep beats one
// query per scraped item.
func (s *Store) KnownSet(ctx context.Context, cat announce.Category) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT text FROM `+table(cat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out[strings.TrimSpace(t)] = struct{}{}
	}
	return out, rows.Err()
}

// RecordNew persists the not-yet-known texts of a newest-first batch.
//
// The batch is inserted in reverse, so the persisted autoincrement order
// stays oldest-first and Latest() round-trips the fetch order. Already
// known texts are skipped; the second call with the same batch inserts
// nothing. Returns the number of rows actually inserted.
func (s *Store) RecordNew(ctx context.Context, cat announce.Category, newestFirst []string) (int, error) {
	if len(newestFirst) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	q := `INSERT INTO ` + table(cat) + ` (text) VALUES (?) ON CONFLICT(text) DO NOTHING`
	for i := len(newestFirst) - 1; i >= 0; i-- {
		text := strings.TrimSpace(newestFirst[i])
		if text == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, q, text)
		if err != nil {
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Latest returns the most recently inserted texts for cat, newest-first.
func (s *Store) Latest(ctx context.Context, cat announce.Category, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT text FROM `+table(cat)+` ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- Subscriber operations ----

// CreateRecipient inserts a subscriber with every category flag on.
// Presence is success: re-registering an existing id returns (false, nil).
func (s *Store) CreateRecipient(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscribers (id) VALUES (?) ON CONFLICT(id) DO NOTHING`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteRecipient removes the subscriber record and, with it, all flags.
func (s *Store) DeleteRecipient(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetFlag flips one category flag. Returns found=false when the recipient
// does not exist (not an error: callers prompt re-registration).
func (s *Store) SetFlag(ctx context.Context, id int64, cat announce.Category, value bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := 0
	if value {
		v = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE subscribers SET `+flagColumn(cat)+` = ? WHERE id = ?`, v, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Flags returns the recipient's per-category flags, or ErrNotFound.
func (s *Store) Flags(ctx context.Context, id int64) (map[announce.Category]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var mainOn, yadyokOn, misOn int
	err := s.db.QueryRowContext(ctx,
		`SELECT main_on, yadyok_on, mis_on FROM subscribers WHERE id = ?`, id,
	).Scan(&mainOn, &yadyokOn, &misOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return map[announce.Category]bool{
		announce.Main:   mainOn != 0,
		announce.Yadyok: yadyokOn != 0,
		announce.MIS:    misOn != 0,
	}, nil
}

// RecipientsWith lists every subscriber whose flag for cat is on.
func (s *Store) RecipientsWith(ctx context.Context, cat announce.Category) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM subscribers WHERE `+flagColumn(cat)+` = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

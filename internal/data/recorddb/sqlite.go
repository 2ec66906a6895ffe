// Package recorddb is the sqlite record store. Records are stored as one
// JSON document per row next to the key columns the queries need, so the
// schema survives record shape changes without migrations.
package recorddb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"gallop.gg/internal/data"
	"gallop.gg/internal/infraction"
)

type Store struct {
	db *sql.DB
}

var _ data.Store = (*Store)(nil)

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("recorddb: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			name TEXT PRIMARY KEY,
			character_uid INTEGER NOT NULL,
			json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS characters (
			uid INTEGER PRIMARY KEY AUTOINCREMENT,
			user_name TEXT NOT NULL,
			json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_characters_user ON characters(user_name);`,
		`CREATE TABLE IF NOT EXISTS horses (
			uid INTEGER PRIMARY KEY AUTOINCREMENT,
			owner_uid INTEGER NOT NULL,
			json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_horses_owner ON horses(owner_uid);`,
		`CREATE TABLE IF NOT EXISTS guilds (
			uid INTEGER PRIMARY KEY,
			json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS infractions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_name TEXT NOT NULL,
			kind INTEGER NOT NULL,
			reason TEXT NOT NULL,
			issued_at TEXT NOT NULL,
			expires_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_infractions_user ON infractions(user_name);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) UserByName(ctx context.Context, name string) (data.User, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM users WHERE name = ?`, name).Scan(&raw)
	if err == sql.ErrNoRows {
		return data.User{}, data.ErrNotFound
	}
	if err != nil {
		return data.User{}, err
	}
	var u data.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return data.User{}, fmt.Errorf("recorddb: user %q: %w", name, err)
	}
	return u, nil
}

func (s *Store) SaveUser(ctx context.Context, u data.User) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO users(name, character_uid, json) VALUES(?, ?, ?)`,
		u.Name, u.CharacterUID, string(raw))
	return err
}

func (s *Store) Character(ctx context.Context, uid uint32) (data.Character, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM characters WHERE uid = ?`, uid).Scan(&raw)
	if err == sql.ErrNoRows {
		return data.Character{}, data.ErrNotFound
	}
	if err != nil {
		return data.Character{}, err
	}
	var c data.Character
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return data.Character{}, fmt.Errorf("recorddb: character %d: %w", uid, err)
	}
	return c, nil
}

func (s *Store) CreateCharacter(ctx context.Context, c data.Character) (uint32, error) {
	// Allocate the uid first, then store the record with it baked in.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO characters(user_name, json) VALUES(?, '{}')`, c.UserName)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.UID = uint32(id)
	raw, err := json.Marshal(c)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE characters SET json = ? WHERE uid = ?`, string(raw), c.UID); err != nil {
		return 0, err
	}
	return c.UID, nil
}

func (s *Store) SaveCharacter(ctx context.Context, c data.Character) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE characters SET user_name = ?, json = ? WHERE uid = ?`,
		c.UserName, string(raw), c.UID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return data.ErrNotFound
	}
	return nil
}

func (s *Store) Horse(ctx context.Context, uid uint32) (data.Horse, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM horses WHERE uid = ?`, uid).Scan(&raw)
	if err == sql.ErrNoRows {
		return data.Horse{}, data.ErrNotFound
	}
	if err != nil {
		return data.Horse{}, err
	}
	var h data.Horse
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return data.Horse{}, fmt.Errorf("recorddb: horse %d: %w", uid, err)
	}
	return h, nil
}

func (s *Store) CreateHorse(ctx context.Context, h data.Horse) (uint32, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO horses(owner_uid, json) VALUES(?, '{}')`, h.OwnerUID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	h.UID = uint32(id)
	h.Horse.UID = h.UID
	raw, err := json.Marshal(h)
	if err != nil {
		return 0, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE horses SET json = ? WHERE uid = ?`, string(raw), h.UID); err != nil {
		return 0, err
	}
	return h.UID, nil
}

func (s *Store) SaveHorse(ctx context.Context, h data.Horse) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE horses SET owner_uid = ?, json = ? WHERE uid = ?`,
		h.OwnerUID, string(raw), h.UID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return data.ErrNotFound
	}
	return nil
}

func (s *Store) Guild(ctx context.Context, uid uint32) (data.Guild, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT json FROM guilds WHERE uid = ?`, uid).Scan(&raw)
	if err == sql.ErrNoRows {
		return data.Guild{}, data.ErrNotFound
	}
	if err != nil {
		return data.Guild{}, err
	}
	var g data.Guild
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return data.Guild{}, fmt.Errorf("recorddb: guild %d: %w", uid, err)
	}
	return g, nil
}

// SaveGuild persists a guild row; the operator surface creates guilds.
func (s *Store) SaveGuild(ctx context.Context, g data.Guild) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO guilds(uid, json) VALUES(?, ?)`, g.UID, string(raw))
	return err
}

func (s *Store) Infractions(ctx context.Context, userName string) ([]infraction.Infraction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, reason, issued_at, expires_at FROM infractions WHERE user_name = ? ORDER BY id`,
		userName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []infraction.Infraction
	for rows.Next() {
		var (
			kind    int
			reason  string
			issued  string
			expires sql.NullString
		)
		if err := rows.Scan(&kind, &reason, &issued, &expires); err != nil {
			return nil, err
		}
		inf := infraction.Infraction{Kind: infraction.Kind(kind), Reason: reason}
		inf.IssuedAt, _ = time.Parse(time.RFC3339Nano, issued)
		if expires.Valid && expires.String != "" {
			inf.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expires.String)
		}
		out = append(out, inf)
	}
	return out, rows.Err()
}

func (s *Store) AddInfraction(ctx context.Context, userName string, inf infraction.Infraction) error {
	issued := inf.IssuedAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	var expires string
	if !inf.ExpiresAt.IsZero() {
		expires = inf.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO infractions(user_name, kind, reason, issued_at, expires_at) VALUES(?, ?, ?, ?, ?)`,
		userName, int(inf.Kind), inf.Reason, issued.UTC().Format(time.RFC3339Nano), expires)
	return err
}

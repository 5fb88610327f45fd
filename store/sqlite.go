// Package store persists game results and rating snapshots.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/contacteval/contact/game"
	"github.com/contacteval/contact/rating"
	"github.com/contacteval/contact/stats"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite keeps games and ratings in one database file. Games are stored
// as JSON documents next to the columns used for filtering.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database and applies migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate() error {
	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			log.Warn().Err(err).Str("pragma", p).Msg("sqlite-pragma")
		}
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			seq INTEGER NOT NULL DEFAULT 0,
			word TEXT NOT NULL,
			dictionary_id TEXT NOT NULL,
			holder_id TEXT NOT NULL,
			attacker_ids TEXT NOT NULL,
			winner TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			holder_score REAL NOT NULL,
			finished_at TEXT NOT NULL,
			doc TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS ratings (
			player_id TEXT NOT NULL,
			role TEXT NOT NULL,
			mu REAL NOT NULL,
			sigma REAL NOT NULL,
			games_played INTEGER NOT NULL,
			provisional INTEGER NOT NULL,
			PRIMARY KEY (player_id, role)
		);`,
		`CREATE TABLE IF NOT EXISTS difficulty (
			word TEXT NOT NULL,
			role TEXT NOT NULL,
			n INTEGER NOT NULL,
			total REAL NOT NULL,
			m2 REAL NOT NULL,
			PRIMARY KEY (word, role)
		);`,
		`CREATE TABLE IF NOT EXISTS applied_games (
			game_id TEXT PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS snapshot_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_games_finished_at ON games(finished_at);`,
		`CREATE INDEX IF NOT EXISTS idx_games_seq ON games(seq);`,
		`CREATE INDEX IF NOT EXISTS idx_games_word ON games(word);`,
	}
	if err := s.addSeqColumn(); err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// addSeqColumn upgrades a games table created before games carried a
// commit sequence number.
func (s *SQLite) addSeqColumn() error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info('games')`)
	if err != nil {
		return err
	}
	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		cols = append(cols, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if len(cols) == 0 || slices.Contains(cols, "seq") {
		return nil
	}
	_, err = s.db.Exec(`ALTER TABLE games ADD COLUMN seq INTEGER NOT NULL DEFAULT 0`)
	return err
}

// SaveGame appends a result. Saving the same game twice is a no-op.
func (s *SQLite) SaveGame(ctx context.Context, res *game.Result) error {
	doc, err := json.Marshal(res)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO games (id, seq, word, dictionary_id, holder_id, attacker_ids, winner, rounds, holder_score, finished_at, doc)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID,
		res.Seq,
		res.Config.Word,
		res.Config.DictionaryID,
		res.Config.HolderID,
		strings.Join(res.Config.AttackerIDs, ","),
		res.Winner,
		len(res.Rounds),
		res.HolderScore,
		res.Timestamp.UTC().Format(timeLayout),
		string(doc),
	)
	return err
}

// LoadAllGames returns every saved game in commit order.
func (s *SQLite) LoadAllGames(ctx context.Context) ([]*game.Result, error) {
	return s.queryGames(ctx, `SELECT doc FROM games ORDER BY seq, finished_at, id`)
}

// GamesForWord returns the saved games played on word in commit order.
// Words are matched case-insensitively.
func (s *SQLite) GamesForWord(ctx context.Context, word string) ([]*game.Result, error) {
	return s.queryGames(ctx, `SELECT doc FROM games WHERE upper(word) = upper(?) ORDER BY seq, finished_at, id`, word)
}

func (s *SQLite) queryGames(ctx context.Context, query string, args ...any) ([]*game.Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*game.Result
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		res := &game.Result{}
		if err := json.Unmarshal([]byte(doc), res); err != nil {
			return nil, fmt.Errorf("decoding game: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// SaveRatings replaces the stored snapshot in one transaction.
func (s *SQLite) SaveRatings(ctx context.Context, snap *rating.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, table := range []string{"ratings", "difficulty", "applied_games"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return err
		}
	}
	for _, r := range snap.Ratings {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO ratings (player_id, role, mu, sigma, games_played, provisional) VALUES (?, ?, ?, ?, ?, ?)`,
			r.PlayerID, string(r.Role), r.Mu, r.Sigma, r.GamesPlayed, r.Provisional); err != nil {
			return err
		}
	}
	for _, d := range snap.Difficulty {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO difficulty (word, role, n, total, m2) VALUES (?, ?, ?, ?, ?)`,
			d.Word, string(d.Role), d.Moments.Count, d.Moments.Sum, d.Moments.M2); err != nil {
			return err
		}
	}
	for _, id := range snap.Applied {
		if _, err = tx.ExecContext(ctx, `INSERT INTO applied_games (game_id) VALUES (?)`, id); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, saved_at) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET saved_at = excluded.saved_at`,
		time.Now().UTC().Format(timeLayout)); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadRatings returns nil if no snapshot was ever saved.
func (s *SQLite) LoadRatings(ctx context.Context) (*rating.Snapshot, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx, `SELECT saved_at FROM snapshot_meta WHERE id = 1`).Scan(&savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap := &rating.Snapshot{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT player_id, role, mu, sigma, games_played, provisional FROM ratings ORDER BY CASE role WHEN 'holder' THEN 0 ELSE 1 END, player_id`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var r rating.Rating
		var role string
		if err := rows.Scan(&r.PlayerID, &role, &r.Mu, &r.Sigma, &r.GamesPlayed, &r.Provisional); err != nil {
			rows.Close()
			return nil, err
		}
		r.Role = rating.Role(role)
		snap.Ratings = append(snap.Ratings, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT word, role, n, total, m2 FROM difficulty ORDER BY word, role`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var d rating.DifficultyStat
		var role string
		var m stats.Moments
		if err := rows.Scan(&d.Word, &role, &m.Count, &m.Sum, &m.M2); err != nil {
			rows.Close()
			return nil, err
		}
		d.Role = rating.Role(role)
		d.Moments = m
		snap.Difficulty = append(snap.Difficulty, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT game_id FROM applied_games ORDER BY game_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		snap.Applied = append(snap.Applied, id)
	}
	return snap, rows.Err()
}

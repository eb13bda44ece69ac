package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDatabase implementa a interface Database para SQLite
type SQLiteDatabase struct {
	connString string
	db         *sql.DB
}

func NewSQLiteDatabase(connString string) *SQLiteDatabase {
	return &SQLiteDatabase{
		connString: connString,
	}
}

func (s *SQLiteDatabase) Open() error {
	db, err := sql.Open("sqlite3", s.connString)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database not connected")
	}
	return s.db.Ping()
}

func (s *SQLiteDatabase) GetDB() *sql.DB {
	return s.db
}

func (s *SQLiteDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return s.db.Query(query, args...)
}

func (s *SQLiteDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return s.db.QueryRow(query, args...)
}

func (s *SQLiteDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return s.db.Exec(query, args...)
}

func (s *SQLiteDatabase) Begin() (*sql.Tx, error) {
	return s.db.Begin()
}

// Rebind é identidade no SQLite (? já é o placeholder nativo).
func (s *SQLiteDatabase) Rebind(query string) string {
	return query
}

// CreateTables cria as tabelas necessárias para SQLite
func (s *SQLiteDatabase) CreateTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS steam_mappings (
			user_id TEXT NOT NULL PRIMARY KEY,
			steam_id TEXT NOT NULL,
			created_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS active_players (
			user_id TEXT NOT NULL PRIMARY KEY,
			game_id TEXT NOT NULL,
			match_id TEXT NOT NULL,
			team TEXT NOT NULL,
			match_start_time INTEGER NOT NULL,
			last_check_time INTEGER DEFAULT 0,
			sources TEXT DEFAULT '',
			confidence INTEGER DEFAULT 0,
			validated_at INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS bets (
			id TEXT NOT NULL PRIMARY KEY,
			user_id TEXT NOT NULL,
			match_id TEXT NOT NULL,
			bet_type TEXT NOT NULL DEFAULT 'team_win',
			team TEXT,
			target TEXT,
			amount REAL NOT NULL,
			placed_at INTEGER NOT NULL,
			resolved BOOLEAN DEFAULT FALSE,
			won BOOLEAN DEFAULT FALSE,
			payout REAL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS match_events (
			match_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_target TEXT,
			event_time INTEGER,
			PRIMARY KEY (match_id, event_type)
		);`,
		`CREATE TABLE IF NOT EXISTS game_state_transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			match_id TEXT NOT NULL,
			prev_state TEXT NOT NULL,
			new_state TEXT NOT NULL,
			observed_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS wallet_sessions (
			user_id TEXT NOT NULL PRIMARY KEY,
			wallet_address TEXT,
			session_id TEXT UNIQUE,
			connected BOOLEAN DEFAULT FALSE,
			last_active DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS rate_limits (
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			last_used INTEGER,
			PRIMARY KEY (user_id, action)
		);`,
		`CREATE TABLE IF NOT EXISTS gsi_connections (
			user_id TEXT NOT NULL,
			received_at DATETIME NOT NULL
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

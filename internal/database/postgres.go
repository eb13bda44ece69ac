package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresDatabase implementa a interface Database para PostgreSQL usando pgx
type PostgresDatabase struct {
	connString string
	db         *sql.DB
}

func NewPostgresDatabase(connString string) *PostgresDatabase {
	return &PostgresDatabase{
		connString: connString,
	}
}

func (p *PostgresDatabase) Open() error {
	db, err := sql.Open("pgx", p.connString)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Pool conservador; o bot é um único processo
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	p.db = db
	return nil
}

func (p *PostgresDatabase) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresDatabase) Ping() error {
	if p.db == nil {
		return fmt.Errorf("database not connected")
	}
	return p.db.Ping()
}

func (p *PostgresDatabase) GetDB() *sql.DB {
	return p.db
}

func (p *PostgresDatabase) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return p.db.Query(p.Rebind(query), args...)
}

func (p *PostgresDatabase) QueryRow(query string, args ...interface{}) *sql.Row {
	return p.db.QueryRow(p.Rebind(query), args...)
}

func (p *PostgresDatabase) Exec(query string, args ...interface{}) (sql.Result, error) {
	return p.db.Exec(p.Rebind(query), args...)
}

func (p *PostgresDatabase) Begin() (*sql.Tx, error) {
	return p.db.Begin()
}

// Rebind converte ? para $1, $2, ... (formato do PostgreSQL).
func (p *PostgresDatabase) Rebind(query string) string {
	return convertPlaceholders(query)
}

// CreateTables cria as tabelas necessárias para PostgreSQL
func (p *PostgresDatabase) CreateTables() error {
	if os.Getenv("DB_SKIP_TABLE_CREATION") == "true" {
		return nil
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS steam_mappings (
			user_id TEXT PRIMARY KEY,
			steam_id TEXT NOT NULL,
			created_at TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS active_players (
			user_id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL,
			match_id TEXT NOT NULL,
			team TEXT NOT NULL,
			match_start_time BIGINT NOT NULL,
			last_check_time BIGINT DEFAULT 0,
			sources TEXT DEFAULT '',
			confidence INTEGER DEFAULT 0,
			validated_at BIGINT DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS bets (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			match_id TEXT NOT NULL,
			bet_type TEXT NOT NULL DEFAULT 'team_win',
			team TEXT,
			target TEXT,
			amount DOUBLE PRECISION NOT NULL,
			placed_at BIGINT NOT NULL,
			resolved BOOLEAN DEFAULT FALSE,
			won BOOLEAN DEFAULT FALSE,
			payout DOUBLE PRECISION DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS match_events (
			match_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_target TEXT,
			event_time BIGINT,
			PRIMARY KEY (match_id, event_type)
		);`,
		`CREATE TABLE IF NOT EXISTS game_state_transitions (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			match_id TEXT NOT NULL,
			prev_state TEXT NOT NULL,
			new_state TEXT NOT NULL,
			observed_at BIGINT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS wallet_sessions (
			user_id TEXT PRIMARY KEY,
			wallet_address TEXT,
			session_id TEXT UNIQUE,
			connected BOOLEAN DEFAULT FALSE,
			last_active TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS rate_limits (
			user_id TEXT NOT NULL,
			action TEXT NOT NULL,
			last_used BIGINT,
			PRIMARY KEY (user_id, action)
		);`,
		`CREATE TABLE IF NOT EXISTS gsi_connections (
			user_id TEXT NOT NULL,
			received_at TIMESTAMP NOT NULL
		);`,
	}

	for _, stmt := range statements {
		if _, err := p.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

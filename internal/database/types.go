package database

import (
	"database/sql"
	"time"
)

// Database define a interface para operações de banco de dados.
// As queries dos domínios (tracker, betting) ficam nos próprios pacotes;
// aqui vivem só a conexão, os backends e as tabelas compartilhadas.
type Database interface {
	// Connection
	Open() error
	Close() error
	Ping() error
	GetDB() *sql.DB

	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Exec(query string, args ...interface{}) (sql.Result, error)
	Begin() (*sql.Tx, error)

	// Rebind converte placeholders ? para o formato do driver ($N no PostgreSQL).
	Rebind(query string) string

	CreateTables() error
}

// SteamMapping liga um usuário do Discord a uma conta Steam.
type SteamMapping struct {
	UserID    string
	SteamID   string
	CreatedAt time.Time
}

// WalletSession representa uma sessão de carteira conectada.
type WalletSession struct {
	UserID        string
	WalletAddress string
	SessionID     string
	Connected     bool
	LastActive    time.Time
}

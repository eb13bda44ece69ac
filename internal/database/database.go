package database

import (
	"fmt"

	"github.com/mamagarobonomon/goodgains-bot/pkg/config"
)

// New cria e inicializa o banco de dados baseado na configuração.
func New(cfg config.DatabaseConfig) (Database, error) {
	var db Database
	switch cfg.Type {
	case "postgres":
		db = NewPostgresDatabase(cfg.ConnString)
	case "sqlite":
		fallthrough
	default:
		db = NewSQLiteDatabase(cfg.ConnString)
	}

	if err := db.Open(); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := db.CreateTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return db, nil
}

// convertPlaceholders converte ? placeholders para $N (PostgreSQL).
func convertPlaceholders(query string) string {
	result := ""
	placeholderIndex := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result += fmt.Sprintf("$%d", placeholderIndex)
			placeholderIndex++
		} else {
			result += string(query[i])
		}
	}
	return result
}

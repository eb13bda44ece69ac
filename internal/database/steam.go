package database

import (
	"database/sql"
	"time"
)

// SaveSteamMapping vincula (ou revincula) um usuário a uma conta Steam.
func SaveSteamMapping(db Database, userID, steamID string) error {
	query := `INSERT INTO steam_mappings (user_id, steam_id, created_at) VALUES (?, ?, ?)
			  ON CONFLICT(user_id) DO UPDATE SET steam_id = excluded.steam_id`
	_, err := db.Exec(query, userID, steamID, time.Now())
	return err
}

// GetSteamID retorna o Steam ID vinculado a um usuário, ou "" se não houver.
func GetSteamID(db Database, userID string) (string, error) {
	var steamID string
	err := db.QueryRow("SELECT steam_id FROM steam_mappings WHERE user_id = ?", userID).Scan(&steamID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return steamID, nil
}

// AllSteamMappings retorna todos os vínculos Discord -> Steam.
func AllSteamMappings(db Database) ([]SteamMapping, error) {
	rows, err := db.Query("SELECT user_id, steam_id FROM steam_mappings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []SteamMapping
	for rows.Next() {
		var m SteamMapping
		if err := rows.Scan(&m.UserID, &m.SteamID); err != nil {
			continue
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// RecordGSIConnection registra o recebimento de um payload GSI do usuário.
func RecordGSIConnection(db Database, userID string, at time.Time) error {
	_, err := db.Exec("INSERT INTO gsi_connections (user_id, received_at) VALUES (?, ?)", userID, at)
	return err
}

// CountRecentGSIConnections conta payloads recebidos do usuário desde o instante dado.
func CountRecentGSIConnections(db Database, userID string, since time.Time) (int, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM gsi_connections WHERE user_id = ? AND received_at > ?",
		userID, since,
	).Scan(&count)
	return count, err
}

package database

import (
	"database/sql"
	"time"
)

// GetConnectedWallet retorna a carteira conectada do usuário, ou nil.
func GetConnectedWallet(db Database, userID string) (*WalletSession, error) {
	var ws WalletSession
	err := db.QueryRow(
		"SELECT user_id, wallet_address, session_id, connected, last_active FROM wallet_sessions WHERE user_id = ? AND connected = TRUE",
		userID,
	).Scan(&ws.UserID, &ws.WalletAddress, &ws.SessionID, &ws.Connected, &ws.LastActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

// UpsertWalletSession grava ou atualiza a sessão de carteira de um usuário.
func UpsertWalletSession(db Database, ws *WalletSession) error {
	query := `INSERT INTO wallet_sessions (user_id, wallet_address, session_id, connected, last_active)
			  VALUES (?, ?, ?, ?, ?)
			  ON CONFLICT(user_id) DO UPDATE SET
				wallet_address = excluded.wallet_address,
				session_id = excluded.session_id,
				connected = excluded.connected,
				last_active = excluded.last_active`
	_, err := db.Exec(query, ws.UserID, ws.WalletAddress, ws.SessionID, ws.Connected, ws.LastActive)
	return err
}

// CleanupExpiredWalletSessions remove sessões inativas desde o corte.
// Retorna quantas linhas foram removidas.
func CleanupExpiredWalletSessions(db Database, cutoff time.Time) (int64, error) {
	res, err := db.Exec("DELETE FROM wallet_sessions WHERE last_active < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

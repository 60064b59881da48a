package scheduler

import (
	"context"
	"database/sql"
	"fmt"
)

// ScheduledGame is a game the admin panel has published for play.
type ScheduledGame struct {
	Code           string `json:"code"`
	AdminID        string `json:"adminId"`
	MaxPlayers     int    `json:"maxPlayers"`
	TotalQuestions int    `json:"totalQuestions"`
}

// GameStore lists games waiting to be hosted.
type GameStore interface {
	WaitingGames(ctx context.Context) ([]ScheduledGame, error)
}

// SQLStore reads scheduled games through database/sql.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const waitingGamesQuery = `
	SELECT code, admin_id, COALESCE(max_players, 0), COALESCE(question_count, 0)
	FROM quiz_games
	WHERE status = 'waiting'
	ORDER BY scheduled_at`

func (s *SQLStore) WaitingGames(ctx context.Context) ([]ScheduledGame, error) {
	rows, err := s.db.QueryContext(ctx, waitingGamesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query waiting games: %w", err)
	}
	defer rows.Close()

	var games []ScheduledGame
	for rows.Next() {
		var g ScheduledGame
		if err := rows.Scan(&g.Code, &g.AdminID, &g.MaxPlayers, &g.TotalQuestions); err != nil {
			return nil, fmt.Errorf("failed to scan waiting game: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

package questions

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mcdev12/quizroyale/go/internal/models"
)

// Querier is the subset of pgxpool.Pool the provider needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const gameQuestionsQuery = `
	SELECT q.id, q.text, q.option_a, q.option_b, q.option_c, q.option_d,
	       q.correct_answer, COALESCE(q.explanation, ''), q.position
	FROM quiz_games g
	JOIN quiz_questions q ON q.quiz_id = g.quiz_id
	WHERE g.code = $1
	ORDER BY q.position`

// PostgresProvider loads the question set of a scheduled game from the admin
// panel's tables.
type PostgresProvider struct {
	db Querier
}

func NewPostgresProvider(db Querier) *PostgresProvider {
	return &PostgresProvider{db: db}
}

func (p *PostgresProvider) GameQuestions(ctx context.Context, gameCode string) ([]models.Question, error) {
	rows, err := p.db.Query(ctx, gameQuestionsQuery, gameCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var qs []models.Question
	for rows.Next() {
		var (
			q          models.Question
			a, b, c, d string
		)
		if err := rows.Scan(&q.ID, &q.Text, &a, &b, &c, &d, &q.CorrectAnswer, &q.Explanation, &q.Position); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		// true/false questions leave C and D empty
		q.Options = make(map[string]string, 4)
		for key, text := range map[string]string{
			models.OptionA: a,
			models.OptionB: b,
			models.OptionC: c,
			models.OptionD: d,
		} {
			if text != "" {
				q.Options[key] = text
			}
		}
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	if len(qs) == 0 {
		return nil, fmt.Errorf("game %s: %w", gameCode, ErrNotFound)
	}
	return validate(qs)
}

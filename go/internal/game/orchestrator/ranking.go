package orchestrator

import (
	"sort"

	"github.com/mcdev12/quizroyale/go/internal/game/room"
	"github.com/mcdev12/quizroyale/go/internal/models"
)

// Ranking orders the room's players for game-over: the winner, then the
// other survivors by correct answers and id, then eliminated players with
// the last one out ranked highest. Caller must hold the room lock.
func Ranking(r *room.Room) []models.RankingEntry {
	winner := r.WinnerID()

	var survivors []string
	for _, id := range r.Survivors() {
		if id != winner {
			survivors = append(survivors, id)
		}
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		ci, cj := r.CorrectCount(survivors[i]), r.CorrectCount(survivors[j])
		if ci != cj {
			return ci > cj
		}
		return survivors[i] < survivors[j]
	})

	ordered := make([]string, 0, len(r.Players()))
	if winner != "" {
		ordered = append(ordered, winner)
	}
	ordered = append(ordered, survivors...)
	eliminated := r.EliminatedPlayers()
	for i := len(eliminated) - 1; i >= 0; i-- {
		ordered = append(ordered, eliminated[i])
	}

	ranking := make([]models.RankingEntry, 0, len(ordered))
	for i, id := range ordered {
		ranking = append(ranking, models.RankingEntry{
			Rank:           i + 1,
			PlayerID:       id,
			Eliminated:     r.IsEliminated(id),
			CorrectAnswers: r.CorrectCount(id),
		})
	}
	return ranking
}

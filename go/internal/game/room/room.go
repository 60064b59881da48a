package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/quizroyale/go/internal/models"
)

// Room is the mutable state of one game. Every method except the accessors
// for immutable fields requires the caller to hold the room lock.
type Room struct {
	mu sync.Mutex

	Code       string
	AdminID    string
	MaxPlayers int

	totalQuestions int
	status         models.RoomStatus
	phase          models.RoundPhase

	players      map[string]struct{}
	joinOrder    []string
	disconnected map[string]struct{}

	eliminated       map[string]struct{}
	eliminationOrder []string
	correctCounts    map[string]int

	questions            []models.Question
	currentQuestionIndex int
	currentQuestionID    string
	isFinalQuestion      bool

	activeAnswers map[string]models.Answer
	answerOrder   []string

	timer           *QuestionTimer
	timerSeq        uint64
	startTimer      clockwork.Timer
	pausedRemaining time.Duration

	winnerID     string
	gameOverSent bool
}

func newRoom(code, adminID string, maxPlayers, totalQuestions int) *Room {
	return &Room{
		Code:                 code,
		AdminID:              adminID,
		MaxPlayers:           maxPlayers,
		totalQuestions:       totalQuestions,
		status:               models.RoomStatusWaiting,
		phase:                models.RoundPhaseIdle,
		players:              make(map[string]struct{}),
		disconnected:         make(map[string]struct{}),
		eliminated:           make(map[string]struct{}),
		correctCounts:        make(map[string]int),
		activeAnswers:        make(map[string]models.Answer),
		currentQuestionIndex: -1,
	}
}

// Lock acquires the room's exclusion boundary.
func (r *Room) Lock() { r.mu.Lock() }

// Unlock releases the room's exclusion boundary.
func (r *Room) Unlock() { r.mu.Unlock() }

func (r *Room) Status() models.RoomStatus { return r.status }
func (r *Room) Phase() models.RoundPhase  { return r.phase }
func (r *Room) TotalQuestions() int       { return r.totalQuestions }
func (r *Room) CurrentQuestionIndex() int { return r.currentQuestionIndex }
func (r *Room) CurrentQuestionID() string { return r.currentQuestionID }
func (r *Room) IsFinalQuestion() bool     { return r.isFinalQuestion }
func (r *Room) WinnerID() string          { return r.winnerID }

func (r *Room) SetPhase(p models.RoundPhase) { r.phase = p }

var transitions = map[models.RoomStatus][]models.RoomStatus{
	models.RoomStatusWaiting:    {models.RoomStatusStarting, models.RoomStatusFinished},
	models.RoomStatusStarting:   {models.RoomStatusInProgress, models.RoomStatusFinished},
	models.RoomStatusInProgress: {models.RoomStatusFinished},
}

// Transition moves the room to the given status. Finished is terminal.
func (r *Room) Transition(to models.RoomStatus) error {
	for _, allowed := range transitions[r.status] {
		if allowed == to {
			r.status = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.status, to)
}

// SetQuestions installs the question list for the game and caps the question
// count to what is actually available.
func (r *Room) SetQuestions(questions []models.Question) {
	r.questions = questions
	if r.totalQuestions <= 0 || r.totalQuestions > len(questions) {
		r.totalQuestions = len(questions)
	}
}

// Question returns the question at index i.
func (r *Room) Question(i int) (models.Question, bool) {
	if i < 0 || i >= r.totalQuestions || i >= len(r.questions) {
		return models.Question{}, false
	}
	return r.questions[i], true
}

// CurrentQuestion returns the question most recently started.
func (r *Room) CurrentQuestion() (models.Question, bool) {
	return r.Question(r.currentQuestionIndex)
}

// AddPlayer admits a player. Re-adding an existing member reconnects them.
func (r *Room) AddPlayer(playerID string) error {
	if _, ok := r.players[playerID]; ok {
		delete(r.disconnected, playerID)
		return nil
	}
	switch r.status {
	case models.RoomStatusFinished:
		return ErrGameFinished
	case models.RoomStatusInProgress:
		return ErrGameStarted
	}
	if r.MaxPlayers > 0 && len(r.players) >= r.MaxPlayers {
		return ErrRoomFull
	}
	r.players[playerID] = struct{}{}
	r.joinOrder = append(r.joinOrder, playerID)
	return nil
}

// Disconnect marks a member as disconnected. They stay in the game.
func (r *Room) Disconnect(playerID string) bool {
	if _, ok := r.players[playerID]; !ok {
		return false
	}
	r.disconnected[playerID] = struct{}{}
	return true
}

func (r *Room) IsMember(playerID string) bool {
	_, ok := r.players[playerID]
	return ok
}

func (r *Room) IsEliminated(playerID string) bool {
	_, ok := r.eliminated[playerID]
	return ok
}

// PlayerState reports the named state of a member.
func (r *Room) PlayerState(playerID string) models.PlayerState {
	if r.IsEliminated(playerID) {
		return models.PlayerStateEliminated
	}
	if _, ok := r.disconnected[playerID]; ok {
		return models.PlayerStateDisconnected
	}
	return models.PlayerStateActive
}

// Players returns every member in join order.
func (r *Room) Players() []string {
	return append([]string(nil), r.joinOrder...)
}

// Survivors returns members that have not been eliminated, in join order.
func (r *Room) Survivors() []string {
	survivors := []string{}
	for _, id := range r.joinOrder {
		if !r.IsEliminated(id) {
			survivors = append(survivors, id)
		}
	}
	return survivors
}

// EliminatedPlayers returns eliminated members in elimination order.
func (r *Room) EliminatedPlayers() []string {
	return append([]string(nil), r.eliminationOrder...)
}

// ExpectedAnswers is the number of submissions that closes a question early:
// every survivor that is still connected.
func (r *Room) ExpectedAnswers() int {
	n := 0
	for _, id := range r.joinOrder {
		if r.PlayerState(id) == models.PlayerStateActive {
			n++
		}
	}
	return n
}

// AllAnswered reports whether every connected survivor has an answer in for
// the current question.
func (r *Room) AllAnswered() bool {
	if len(r.activeAnswers) == 0 {
		return false
	}
	for _, id := range r.joinOrder {
		if r.PlayerState(id) != models.PlayerStateActive {
			continue
		}
		if _, ok := r.activeAnswers[id]; !ok {
			return false
		}
	}
	return true
}

// Eliminate adds a player to the eliminated set. The set only grows.
func (r *Room) Eliminate(playerID string) {
	if playerID == "" || r.IsEliminated(playerID) {
		return
	}
	r.eliminated[playerID] = struct{}{}
	r.eliminationOrder = append(r.eliminationOrder, playerID)
	r.dropAnswer(playerID)
}

// CreditCorrect counts a correct answer for the final ranking.
func (r *Room) CreditCorrect(playerIDs []string) {
	for _, id := range playerIDs {
		r.correctCounts[id]++
	}
}

func (r *Room) CorrectCount(playerID string) int {
	return r.correctCounts[playerID]
}

// SetWinner records the game winner.
func (r *Room) SetWinner(playerID string) { r.winnerID = playerID }

// MarkGameOver records that the game-over event went out and reports whether
// this call was the first.
func (r *Room) MarkGameOver() bool {
	if r.gameOverSent {
		return false
	}
	r.gameOverSent = true
	return true
}

// BeginQuestion opens question index i for answers and clears the previous
// round's submissions.
func (r *Room) BeginQuestion(index int, questionID string, isFinal bool) {
	r.currentQuestionIndex = index
	r.currentQuestionID = questionID
	r.isFinalQuestion = isFinal
	r.activeAnswers = make(map[string]models.Answer)
	r.answerOrder = nil
	r.phase = models.RoundPhaseAccepting
}

// RecordAnswer checks a submission and stores it when allowed. The check and
// the insert happen under the same lock, so the first submission wins.
func (r *Room) RecordAnswer(playerID, questionID, selected string, responseTime float64, now time.Time) RejectReason {
	switch {
	case r.phase != models.RoundPhaseAccepting:
		return RejectNotAccepting
	case questionID == "" || questionID != r.currentQuestionID:
		return RejectStaleQuestion
	case r.IsEliminated(playerID):
		return RejectEliminated
	case !r.IsMember(playerID):
		return RejectNotMember
	case !models.IsValidOption(selected):
		return RejectInvalidOption
	}
	// true/false questions only carry A and B
	if q, ok := r.CurrentQuestion(); ok && selected != "" {
		if _, offered := q.Options[selected]; !offered {
			return RejectInvalidOption
		}
	}
	if _, ok := r.activeAnswers[playerID]; ok {
		return RejectDuplicate
	}

	r.activeAnswers[playerID] = models.Answer{
		PlayerID:        playerID,
		QuestionID:      questionID,
		SelectedAnswer:  selected,
		ResponseTime:    responseTime,
		ServerTimestamp: now,
	}
	r.answerOrder = append(r.answerOrder, playerID)
	return Accepted
}

// Answers returns the recorded answers in submission order.
func (r *Room) Answers() []models.Answer {
	answers := make([]models.Answer, 0, len(r.answerOrder))
	for _, id := range r.answerOrder {
		answers = append(answers, r.activeAnswers[id])
	}
	return answers
}

func (r *Room) AnswerCount() int { return len(r.activeAnswers) }

func (r *Room) HasAnswered(playerID string) bool {
	_, ok := r.activeAnswers[playerID]
	return ok
}

func (r *Room) dropAnswer(playerID string) {
	if _, ok := r.activeAnswers[playerID]; !ok {
		return
	}
	delete(r.activeAnswers, playerID)
	for i, id := range r.answerOrder {
		if id == playerID {
			r.answerOrder = append(r.answerOrder[:i:i], r.answerOrder[i+1:]...)
			break
		}
	}
}

// NextTimerSeq returns a fresh sequence number for a question timer.
func (r *Room) NextTimerSeq() uint64 {
	r.timerSeq++
	return r.timerSeq
}

// ArmTimer replaces the active question timer, stopping any previous one
// first so two deadlines can never be live together.
func (r *Room) ArmTimer(t *QuestionTimer) {
	r.ClearTimers()
	r.timer = t
}

// Timer returns the active question timer or nil.
func (r *Room) Timer() *QuestionTimer { return r.timer }

// IsActiveTimer reports whether t is the timer currently owned by the room.
func (r *Room) IsActiveTimer(t *QuestionTimer) bool {
	return t != nil && r.timer == t
}

// ClearTimers stops and forgets the question timer. Safe on a room with no
// timer and safe to call repeatedly.
func (r *Room) ClearTimers() {
	if r.timer == nil {
		return
	}
	r.timer.Stop()
	r.timer = nil
}

// SetStartTimer replaces the pending game start countdown.
func (r *Room) SetStartTimer(t clockwork.Timer) {
	r.ClearStartTimer()
	r.startTimer = t
}

// ClearStartTimer cancels the pending game start countdown, if any.
func (r *Room) ClearStartTimer() {
	if r.startTimer == nil {
		return
	}
	r.startTimer.Stop()
	r.startTimer = nil
}

// Pause freezes the current question with the given time left. The caller
// clears the question timer.
func (r *Room) Pause(remaining time.Duration) {
	r.pausedRemaining = remaining
	r.phase = models.RoundPhasePaused
}

// Resume reopens a paused question and returns the time it had left.
func (r *Room) Resume() time.Duration {
	remaining := r.pausedRemaining
	r.pausedRemaining = 0
	r.phase = models.RoundPhaseAccepting
	return remaining
}

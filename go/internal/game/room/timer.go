package room

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// QuestionTimer bundles the per-second tick and the deadline of one question.
// A room holds at most one; arming a new one always stops the previous.
type QuestionTimer struct {
	Seq       uint64
	Deadline  clockwork.Timer
	Ticker    clockwork.Ticker
	Remaining int
	// EndsAt is when Deadline fires. Set by whoever arms the timer.
	EndsAt time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// NewQuestionTimer wraps already created handles.
func NewQuestionTimer(seq uint64, deadline clockwork.Timer, ticker clockwork.Ticker, remaining int) *QuestionTimer {
	return &QuestionTimer{
		Seq:       seq,
		Deadline:  deadline,
		Ticker:    ticker,
		Remaining: remaining,
		done:      make(chan struct{}),
	}
}

// Done is closed once the timer has been stopped.
func (t *QuestionTimer) Done() <-chan struct{} {
	return t.done
}

// Stop cancels both handles. Safe to call more than once.
func (t *QuestionTimer) Stop() {
	t.stopOnce.Do(func() {
		if t.Ticker != nil {
			t.Ticker.Stop()
		}
		if t.Deadline != nil {
			stopAndDrainTimer(t.Deadline)
		}
		close(t.done)
	})
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// CeilSeconds rounds d up to whole seconds for display. Negative values are 0.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

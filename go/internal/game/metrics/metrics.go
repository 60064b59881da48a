package metrics

import (
	"net/http"
	"time"

	"github.com/mcdev12/quizroyale/go/internal/game/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector defines the metrics the game engine records.
type Collector interface {
	RecordSubmission(result string)
	RecordRound(trigger string, answers int, duration time.Duration)
	RecordElimination()
	RecordGameFinished(hasWinner bool)
	RecordEventSent(eventType events.EventType, success bool)
	SetActiveRooms(n int)
}

// NoOp is a Collector for when metrics aren't needed.
type NoOp struct{}

func (NoOp) RecordSubmission(string)                {}
func (NoOp) RecordRound(string, int, time.Duration) {}
func (NoOp) RecordElimination()                     {}
func (NoOp) RecordGameFinished(bool)                {}
func (NoOp) RecordEventSent(events.EventType, bool) {}
func (NoOp) SetActiveRooms(int)                     {}

// Prometheus implements Collector on a dedicated registry.
type Prometheus struct {
	registry *prometheus.Registry

	submissions   *prometheus.CounterVec
	rounds        *prometheus.CounterVec
	roundAnswers  prometheus.Histogram
	scoring       prometheus.Histogram
	eliminations  prometheus.Counter
	gamesFinished *prometheus.CounterVec
	eventsSent    *prometheus.CounterVec
	activeRooms   prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizroyale",
			Name:      "answer_submissions_total",
			Help:      "Answer submissions by outcome",
		}, []string{"result"}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizroyale",
			Name:      "rounds_scored_total",
			Help:      "Scored rounds by what triggered scoring",
		}, []string{"trigger"}),
		roundAnswers: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizroyale",
			Name:      "round_answers",
			Help:      "Answers recorded per scored round",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		scoring: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quizroyale",
			Name:      "round_scoring_duration_seconds",
			Help:      "Time spent scoring a round and emitting its results",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		eliminations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quizroyale",
			Name:      "eliminations_total",
			Help:      "Players eliminated",
		}),
		gamesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizroyale",
			Name:      "games_finished_total",
			Help:      "Finished games by whether a winner was crowned",
		}, []string{"winner"}),
		eventsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quizroyale",
			Name:      "events_sent_total",
			Help:      "Outbound events by type and delivery status",
		}, []string{"type", "status"}),
		activeRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quizroyale",
			Name:      "active_rooms",
			Help:      "Rooms currently held by the registry",
		}),
	}

	m.registry.MustRegister(
		m.submissions,
		m.rounds,
		m.roundAnswers,
		m.scoring,
		m.eliminations,
		m.gamesFinished,
		m.eventsSent,
		m.activeRooms,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Prometheus) RecordSubmission(result string) {
	m.submissions.WithLabelValues(result).Inc()
}

func (m *Prometheus) RecordRound(trigger string, answers int, duration time.Duration) {
	m.rounds.WithLabelValues(trigger).Inc()
	m.roundAnswers.Observe(float64(answers))
	m.scoring.Observe(duration.Seconds())
}

func (m *Prometheus) RecordElimination() { m.eliminations.Inc() }

func (m *Prometheus) RecordGameFinished(hasWinner bool) {
	label := "false"
	if hasWinner {
		label = "true"
	}
	m.gamesFinished.WithLabelValues(label).Inc()
}

func (m *Prometheus) RecordEventSent(eventType events.EventType, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	m.eventsSent.WithLabelValues(string(eventType), status).Inc()
}

func (m *Prometheus) SetActiveRooms(n int) { m.activeRooms.Set(float64(n)) }

// Handler serves the registry in the Prometheus text format.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Broadcaster wraps an events.Broadcaster with delivery metrics.
type Broadcaster struct {
	next    events.Broadcaster
	metrics Collector
}

func NewBroadcaster(next events.Broadcaster, metrics Collector) *Broadcaster {
	return &Broadcaster{next: next, metrics: metrics}
}

func (b *Broadcaster) Broadcast(gameCode string, event *events.GameEvent) error {
	err := b.next.Broadcast(gameCode, event)
	b.metrics.RecordEventSent(event.Type, err == nil)
	return err
}

func (b *Broadcaster) SendToPlayer(gameCode, playerID string, event *events.GameEvent) error {
	err := b.next.SendToPlayer(gameCode, playerID, event)
	b.metrics.RecordEventSent(event.Type, err == nil)
	return err
}

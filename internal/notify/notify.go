package notify

import (
	"sync"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

type EventType string

const (
	EventGameStarted      EventType = "game_started"
	EventGameRestarted    EventType = "game_restarted"
	EventCardDrawn        EventType = "card_drawn"
	EventCardDiscarded    EventType = "card_discarded"
	EventMeldLaid         EventType = "meld_laid"
	EventMeldExtended     EventType = "meld_extended"
	EventCardReturned     EventType = "card_returned"
	EventWildcardRevealed EventType = "wildcard_revealed"
	EventWinnerDeclared   EventType = "winner_declared"
)

// Event is the minimal payload handed to the sink after a successful mutating
// operation; routing it to connected clients is the sink's concern. Card is
// set only when the moved card is public information (discard traffic); deck
// draws stay between the engine and the acting player. Private events are
// delivered only to PlayerID.
type Event struct {
	Type         EventType    `json:"type"`
	GameID       int64        `json:"game_id"`
	PlayerID     int64        `json:"player_id,omitempty"`
	Source       string       `json:"source,omitempty"`
	Card         *domain.Card `json:"card,omitempty"`
	CardIDs      []int64      `json:"card_ids,omitempty"`
	MeldIndex    *int         `json:"meld_index,omitempty"`
	MeldKind     string       `json:"meld_kind,omitempty"`
	Pure         bool         `json:"pure,omitempty"`
	Dissolved    bool         `json:"dissolved,omitempty"`
	WildcardRank string       `json:"wildcard_rank,omitempty"`
	WinnerID     int64        `json:"winner_id,omitempty"`

	Private bool `json:"-"`
}

type Sink interface {
	Publish(event Event)
}

type nopSink struct{}

func NewNopSink() Sink {
	return nopSink{}
}

func (nopSink) Publish(Event) {}

// Recorder captures events for tests and the simulator.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

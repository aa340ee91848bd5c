package persistence

import (
	"sort"
	"sync"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

// memoryStore holds the raw tables without locking; memoryRepository wraps it
// with a mutex so Atomic callbacks can reuse the same unlocked core.
type memoryStore struct {
	games  map[int64]GameRecord
	cards  map[int64]map[int64]domain.Card
	hands  map[int64]map[int64]domain.PlayerHand
	states map[int64]domain.TableState
}

type memoryRepository struct {
	mu    sync.Mutex
	store memoryStore
}

func NewInMemoryRepository() Repository {
	return &memoryRepository{
		store: memoryStore{
			games:  make(map[int64]GameRecord),
			cards:  make(map[int64]map[int64]domain.Card),
			hands:  make(map[int64]map[int64]domain.PlayerHand),
			states: make(map[int64]domain.TableState),
		},
	}
}

// Atomic serializes the callback against all other access and rolls the
// store back when fn fails, matching transactional all-or-nothing semantics.
func (r *memoryRepository) Atomic(gameID int64, fn func(Store) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	backup := r.store.snapshot(gameID)
	if err := fn(&r.store); err != nil {
		r.store.restore(gameID, backup)
		return err
	}
	return nil
}

func (r *memoryRepository) CreateGame(record GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.CreateGame(record)
}

func (r *memoryRepository) GetGame(gameID int64) (GameRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.GetGame(gameID)
}

func (r *memoryRepository) UpdateGameStatus(gameID int64, status domain.GameStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.UpdateGameStatus(gameID, status)
}

func (r *memoryRepository) ReplaceCards(gameID int64, cards []domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ReplaceCards(gameID, cards)
}

func (r *memoryRepository) GetCard(gameID int64, cardID int64) (domain.Card, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.GetCard(gameID, cardID)
}

func (r *memoryRepository) UpdateCard(gameID int64, card domain.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.UpdateCard(gameID, card)
}

func (r *memoryRepository) ListCards(gameID int64, filter CardFilter) ([]domain.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ListCards(gameID, filter)
}

func (r *memoryRepository) ReplaceHands(gameID int64, hands []domain.PlayerHand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ReplaceHands(gameID, hands)
}

func (r *memoryRepository) GetHand(gameID int64, playerID int64) (domain.PlayerHand, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.GetHand(gameID, playerID)
}

func (r *memoryRepository) ListHands(gameID int64) ([]domain.PlayerHand, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.ListHands(gameID)
}

func (r *memoryRepository) UpdateHand(hand domain.PlayerHand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.UpdateHand(hand)
}

func (r *memoryRepository) PutTableState(state domain.TableState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.PutTableState(state)
}

func (r *memoryRepository) GetTableState(gameID int64) (domain.TableState, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.GetTableState(gameID)
}

func (s *memoryStore) CreateGame(record GameRecord) error {
	if _, exists := s.games[record.ID]; exists {
		return ErrGameAlreadyExists
	}
	s.games[record.ID] = record
	return nil
}

func (s *memoryStore) GetGame(gameID int64) (GameRecord, bool, error) {
	record, ok := s.games[gameID]
	if !ok {
		return GameRecord{}, false, nil
	}
	return record, true, nil
}

func (s *memoryStore) UpdateGameStatus(gameID int64, status domain.GameStatus) error {
	record, ok := s.games[gameID]
	if !ok {
		return ErrGameNotFound
	}
	record.Status = status
	s.games[gameID] = record
	return nil
}

func (s *memoryStore) ReplaceCards(gameID int64, cards []domain.Card) error {
	table := make(map[int64]domain.Card, len(cards))
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return err
		}
		table[card.ID] = cloneCard(card)
	}
	s.cards[gameID] = table
	return nil
}

func (s *memoryStore) GetCard(gameID int64, cardID int64) (domain.Card, bool, error) {
	card, ok := s.cards[gameID][cardID]
	if !ok {
		return domain.Card{}, false, nil
	}
	return cloneCard(card), true, nil
}

func (s *memoryStore) UpdateCard(gameID int64, card domain.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	if _, ok := s.cards[gameID][card.ID]; !ok {
		return ErrCardNotFound
	}
	s.cards[gameID][card.ID] = cloneCard(card)
	return nil
}

func (s *memoryStore) ListCards(gameID int64, filter CardFilter) ([]domain.Card, error) {
	out := make([]domain.Card, 0, len(s.cards[gameID]))
	for _, card := range s.cards[gameID] {
		if filter.Location != nil && card.Location != *filter.Location {
			continue
		}
		if filter.OwnerID != nil && (card.OwnerID == nil || *card.OwnerID != *filter.OwnerID) {
			continue
		}
		out = append(out, cloneCard(card))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position == out[j].Position {
			return out[i].ID < out[j].ID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (s *memoryStore) ReplaceHands(gameID int64, hands []domain.PlayerHand) error {
	table := make(map[int64]domain.PlayerHand, len(hands))
	for _, hand := range hands {
		table[hand.PlayerID] = cloneHand(hand)
	}
	s.hands[gameID] = table
	return nil
}

func (s *memoryStore) GetHand(gameID int64, playerID int64) (domain.PlayerHand, bool, error) {
	hand, ok := s.hands[gameID][playerID]
	if !ok {
		return domain.PlayerHand{}, false, nil
	}
	return cloneHand(hand), true, nil
}

func (s *memoryStore) ListHands(gameID int64) ([]domain.PlayerHand, error) {
	out := make([]domain.PlayerHand, 0, len(s.hands[gameID]))
	for _, hand := range s.hands[gameID] {
		out = append(out, cloneHand(hand))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TurnOrder < out[j].TurnOrder })
	return out, nil
}

func (s *memoryStore) UpdateHand(hand domain.PlayerHand) error {
	if _, ok := s.hands[hand.GameID][hand.PlayerID]; !ok {
		return ErrHandNotFound
	}
	s.hands[hand.GameID][hand.PlayerID] = cloneHand(hand)
	return nil
}

func (s *memoryStore) PutTableState(state domain.TableState) error {
	s.states[state.GameID] = cloneState(state)
	return nil
}

func (s *memoryStore) GetTableState(gameID int64) (domain.TableState, bool, error) {
	state, ok := s.states[gameID]
	if !ok {
		return domain.TableState{}, false, nil
	}
	return cloneState(state), true, nil
}

type gameSnapshot struct {
	game     *GameRecord
	cards    map[int64]domain.Card
	hasCards bool
	hands    map[int64]domain.PlayerHand
	hasHands bool
	state    *domain.TableState
}

func (s *memoryStore) snapshot(gameID int64) gameSnapshot {
	snap := gameSnapshot{}
	if game, ok := s.games[gameID]; ok {
		g := game
		snap.game = &g
	}
	if cards, ok := s.cards[gameID]; ok {
		snap.hasCards = true
		snap.cards = make(map[int64]domain.Card, len(cards))
		for id, card := range cards {
			snap.cards[id] = cloneCard(card)
		}
	}
	if hands, ok := s.hands[gameID]; ok {
		snap.hasHands = true
		snap.hands = make(map[int64]domain.PlayerHand, len(hands))
		for id, hand := range hands {
			snap.hands[id] = cloneHand(hand)
		}
	}
	if state, ok := s.states[gameID]; ok {
		st := cloneState(state)
		snap.state = &st
	}
	return snap
}

func (s *memoryStore) restore(gameID int64, snap gameSnapshot) {
	if snap.game != nil {
		s.games[gameID] = *snap.game
	} else {
		delete(s.games, gameID)
	}
	if snap.hasCards {
		s.cards[gameID] = snap.cards
	} else {
		delete(s.cards, gameID)
	}
	if snap.hasHands {
		s.hands[gameID] = snap.hands
	} else {
		delete(s.hands, gameID)
	}
	if snap.state != nil {
		s.states[gameID] = *snap.state
	} else {
		delete(s.states, gameID)
	}
}

func cloneCard(card domain.Card) domain.Card {
	out := card
	if card.OwnerID != nil {
		owner := *card.OwnerID
		out.OwnerID = &owner
	}
	return out
}

func cloneHand(hand domain.PlayerHand) domain.PlayerHand {
	out := hand
	if hand.Melds != nil {
		out.Melds = make([]domain.Meld, 0, len(hand.Melds))
		for _, meld := range hand.Melds {
			out.Melds = append(out.Melds, append(domain.Meld(nil), meld...))
		}
	}
	return out
}

func cloneState(state domain.TableState) domain.TableState {
	out := state
	if state.WinnerID != nil {
		winner := *state.WinnerID
		out.WinnerID = &winner
	}
	return out
}

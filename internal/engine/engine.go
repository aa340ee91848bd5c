// Package engine owns the rummy table state machine: game lifecycle, turn
// sequencing, draw/discard rules, and meld adjudication. It consumes the
// persistence repository through atomic units and tells the notification sink
// what happened; it owns neither storage nor transport.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/ayilmaz/rummy-table/internal/domain"
	"github.com/ayilmaz/rummy-table/internal/notify"
	"github.com/ayilmaz/rummy-table/internal/persistence"
	"github.com/ayilmaz/rummy-table/internal/rules"
)

type Engine struct {
	repo     persistence.Repository
	sink     notify.Sink
	shuffler rules.Shuffler
	config   domain.TableConfig

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(repo persistence.Repository, sink notify.Sink, shuffler rules.Shuffler, config domain.TableConfig) *Engine {
	if sink == nil {
		sink = notify.NewNopSink()
	}
	if shuffler == nil {
		shuffler = rules.NewCryptoShuffler()
	}
	if config == (domain.TableConfig{}) {
		config = domain.DefaultTableConfig()
	}
	return &Engine{
		repo:     repo,
		sink:     sink,
		shuffler: shuffler,
		config:   config,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// lockGame serializes mutating operations per game id; actions against
// different games proceed in parallel.
func (e *Engine) lockGame(gameID int64) func() {
	e.mu.Lock()
	lock, ok := e.locks[gameID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[gameID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// InitializeGame resets any prior cards/hands/state for the game id, builds a
// fresh shuffled deck, deals every player their hand in turn order, places the
// initial face-up discard, and picks the hidden wildcard rank. Re-running it
// on a live or finished game is the explicit restart path.
func (e *Engine) InitializeGame(gameID int64, playerIDs []int64) error {
	unlock := e.lockGame(gameID)
	defer unlock()

	restarted := false
	err := e.repo.Atomic(gameID, func(s persistence.Store) error {
		game, ok, err := s.GetGame(gameID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Errorf(domain.KindNotFound, "game %d not found", gameID)
		}
		restarted = game.Status != domain.GameStatusWaiting

		if err := e.validatePlayers(game, playerIDs); err != nil {
			return err
		}

		deck, err := rules.BuildDeck(e.shuffler)
		if err != nil {
			return fmt.Errorf("build deck for game %d: %w", gameID, err)
		}
		needed := len(playerIDs)*e.config.HandSize + 1
		if needed > len(deck) {
			return domain.Errorf(domain.KindInsufficientCards,
				"deal needs %d cards, deck has %d", needed, len(deck))
		}

		// Deal in turn order, then flip one card face-up as the initial
		// discard; the rest stays in the deck with positions renumbered so
		// position 0 is the top.
		next := 0
		for _, playerID := range playerIDs {
			playerID := playerID
			for i := 0; i < e.config.HandSize; i++ {
				deck[next].Location = domain.LocationPlayerHand
				deck[next].OwnerID = &playerID
				deck[next].Position = i
				next++
			}
		}
		deck[next].Location = domain.LocationDiscard
		deck[next].OwnerID = nil
		deck[next].Position = 0
		next++
		for i := next; i < len(deck); i++ {
			deck[i].Position = i - next
		}
		if err := s.ReplaceCards(gameID, deck); err != nil {
			return err
		}

		hands := make([]domain.PlayerHand, 0, len(playerIDs))
		for i, playerID := range playerIDs {
			hands = append(hands, domain.PlayerHand{
				GameID:    gameID,
				PlayerID:  playerID,
				TurnOrder: i,
				Melds:     []domain.Meld{},
			})
		}
		if err := s.ReplaceHands(gameID, hands); err != nil {
			return err
		}

		ranks := domain.Ranks()
		idx, err := e.shuffler.PickIndex(len(ranks))
		if err != nil {
			return fmt.Errorf("pick wildcard rank for game %d: %w", gameID, err)
		}
		now := time.Now().UTC()
		if err := s.PutTableState(domain.TableState{
			GameID:             gameID,
			CurrentTurnPlayer:  playerIDs[0],
			HiddenWildcardRank: ranks[idx],
			TurnNumber:         1,
			LastAction:         "game started",
			CreatedAt:          now,
			UpdatedAt:          now,
		}); err != nil {
			return err
		}
		return s.UpdateGameStatus(gameID, domain.GameStatusInProgress)
	})
	if err != nil {
		return err
	}

	eventType := notify.EventGameStarted
	if restarted {
		eventType = notify.EventGameRestarted
	}
	e.sink.Publish(notify.Event{Type: eventType, GameID: gameID})
	return nil
}

func (e *Engine) validatePlayers(game persistence.GameRecord, playerIDs []int64) error {
	if len(playerIDs) == 0 {
		return domain.Errorf(domain.KindInvalidInput, "player list is empty")
	}
	seen := make(map[int64]struct{}, len(playerIDs))
	for _, playerID := range playerIDs {
		if _, dup := seen[playerID]; dup {
			return domain.Errorf(domain.KindInvalidInput, "duplicate player id %d", playerID)
		}
		seen[playerID] = struct{}{}
	}

	maxPlayers := e.config.MaxPlayers
	if game.MaxPlayers > 0 && game.MaxPlayers < maxPlayers {
		maxPlayers = game.MaxPlayers
	}
	if len(playerIDs) < domain.MinPlayers || len(playerIDs) > int(maxPlayers) {
		return domain.Errorf(domain.KindInvalidInput,
			"player count must be in range %d..=%d, got %d", domain.MinPlayers, maxPlayers, len(playerIDs))
	}
	if needed := len(playerIDs)*e.config.HandSize + 1; needed > domain.DeckSize {
		return domain.Errorf(domain.KindInsufficientCards,
			"%d players x %d cards + 1 discard needs %d cards, a single deck has %d; configure a smaller hand size",
			len(playerIDs), e.config.HandSize, needed, domain.DeckSize)
	}
	return nil
}

// NextTurn advances the turn to the next seated player, wrapping from the
// last seat back to the first.
func (e *Engine) NextTurn(gameID int64) error {
	unlock := e.lockGame(gameID)
	defer unlock()

	return e.repo.Atomic(gameID, func(s persistence.Store) error {
		state, err := e.requireActiveState(s, gameID)
		if err != nil {
			return err
		}
		return e.advanceTurn(s, &state, "turn passed")
	})
}

// DeclareWin records the player as winner and flips the game to finished.
// The engine verifies the claim: the player's hand must be empty.
func (e *Engine) DeclareWin(gameID int64, playerID int64) error {
	unlock := e.lockGame(gameID)
	defer unlock()

	err := e.repo.Atomic(gameID, func(s persistence.Store) error {
		state, err := e.requireActiveState(s, gameID)
		if err != nil {
			return err
		}
		if _, err := e.requireHand(s, gameID, playerID); err != nil {
			return err
		}
		handCards, err := s.ListCards(gameID, persistence.FilterOwner(domain.LocationPlayerHand, playerID))
		if err != nil {
			return err
		}
		if len(handCards) != 0 {
			return domain.Errorf(domain.KindPrecondition,
				"player %d still holds %d cards", playerID, len(handCards))
		}

		winner := playerID
		state.WinnerID = &winner
		state.LastAction = fmt.Sprintf("player %d won", playerID)
		state.UpdatedAt = time.Now().UTC()
		if err := s.PutTableState(state); err != nil {
			return err
		}
		return s.UpdateGameStatus(gameID, domain.GameStatusFinished)
	})
	if err != nil {
		return err
	}

	e.sink.Publish(notify.Event{
		Type:     notify.EventWinnerDeclared,
		GameID:   gameID,
		PlayerID: playerID,
		WinnerID: playerID,
	})
	return nil
}

// requireActiveState loads the table state for a game that is in progress
// with no winner recorded; every mutating operation goes through it.
func (e *Engine) requireActiveState(s persistence.Store, gameID int64) (domain.TableState, error) {
	game, ok, err := s.GetGame(gameID)
	if err != nil {
		return domain.TableState{}, err
	}
	if !ok {
		return domain.TableState{}, domain.Errorf(domain.KindNotFound, "game %d not found", gameID)
	}
	if game.Status == domain.GameStatusWaiting {
		return domain.TableState{}, domain.Errorf(domain.KindPrecondition, "game %d has not started", gameID)
	}
	if game.Status == domain.GameStatusFinished {
		return domain.TableState{}, domain.Errorf(domain.KindPrecondition, "game %d is finished", gameID)
	}
	state, ok, err := s.GetTableState(gameID)
	if err != nil {
		return domain.TableState{}, err
	}
	if !ok {
		return domain.TableState{}, domain.Errorf(domain.KindNotFound, "game %d has no table state", gameID)
	}
	if state.WinnerID != nil {
		return domain.TableState{}, domain.Errorf(domain.KindPrecondition, "game %d already has a winner", gameID)
	}
	return state, nil
}

// requireTurn is the single turn-ownership gate for every turn-consuming
// operation; callers outside the engine never enforce it themselves.
func (e *Engine) requireTurn(state domain.TableState, playerID int64) error {
	if state.CurrentTurnPlayer != playerID {
		return domain.Errorf(domain.KindPrecondition,
			"it is not player %d's turn", playerID)
	}
	return nil
}

func (e *Engine) requireHand(s persistence.Store, gameID int64, playerID int64) (domain.PlayerHand, error) {
	hand, ok, err := s.GetHand(gameID, playerID)
	if err != nil {
		return domain.PlayerHand{}, err
	}
	if !ok {
		return domain.PlayerHand{}, domain.Errorf(domain.KindNotFound,
			"player %d is not seated in game %d", playerID, gameID)
	}
	return hand, nil
}

// advanceTurn rotates the current player through turn order and bumps the
// monotonic turn counter.
func (e *Engine) advanceTurn(s persistence.Store, state *domain.TableState, action string) error {
	hands, err := s.ListHands(state.GameID)
	if err != nil {
		return err
	}
	if len(hands) == 0 {
		return domain.Errorf(domain.KindNotFound, "game %d has no seated players", state.GameID)
	}
	current := 0
	for i, hand := range hands {
		if hand.PlayerID == state.CurrentTurnPlayer {
			current = i
			break
		}
	}
	state.CurrentTurnPlayer = hands[(current+1)%len(hands)].PlayerID
	state.TurnNumber++
	state.LastAction = action
	state.UpdatedAt = time.Now().UTC()
	return s.PutTableState(*state)
}

func (e *Engine) touchState(s persistence.Store, state *domain.TableState, action string) error {
	state.LastAction = action
	state.UpdatedAt = time.Now().UTC()
	return s.PutTableState(*state)
}

func nextPosition(cards []domain.Card) int {
	next := 0
	for _, card := range cards {
		if card.Position >= next {
			next = card.Position + 1
		}
	}
	return next
}

package engine

import (
	"fmt"

	"github.com/ayilmaz/rummy-table/internal/domain"
	"github.com/ayilmaz/rummy-table/internal/notify"
	"github.com/ayilmaz/rummy-table/internal/persistence"
)

// DrawFromDeck moves the top deck card into the caller's hand. When the deck
// is exhausted the whole discard pile is reshuffled back into the deck first;
// if the discard pile is empty as well the draw fails.
func (e *Engine) DrawFromDeck(gameID int64, playerID int64) (domain.Card, error) {
	unlock := e.lockGame(gameID)
	defer unlock()

	var drawn domain.Card
	err := e.repo.Atomic(gameID, func(s persistence.Store) error {
		state, hand, handCards, err := e.requireDrawable(s, gameID, playerID)
		if err != nil {
			return err
		}

		deckCards, err := s.ListCards(gameID, persistence.FilterLocation(domain.LocationDeck))
		if err != nil {
			return err
		}
		if len(deckCards) == 0 {
			deckCards, err = e.recycleDiscard(s, gameID)
			if err != nil {
				return err
			}
		}

		top := deckCards[0]
		top.Location = domain.LocationPlayerHand
		top.OwnerID = &playerID
		top.Position = nextPosition(handCards)
		if err := s.UpdateCard(gameID, top); err != nil {
			return err
		}

		hand.HasDrawn = true
		if err := s.UpdateHand(hand); err != nil {
			return err
		}

		drawn = top
		return e.touchState(s, &state, fmt.Sprintf("player %d drew from the deck", playerID))
	})
	if err != nil {
		return domain.Card{}, err
	}

	// The drawn card stays hidden from the table; the event only says a
	// deck draw happened.
	e.sink.Publish(notify.Event{
		Type:     notify.EventCardDrawn,
		GameID:   gameID,
		PlayerID: playerID,
		Source:   "deck",
	})
	return drawn, nil
}

// DrawFromDiscard moves the top (most recently discarded) card of the discard
// pile into the caller's hand. An empty discard pile fails the draw; the deck
// is never recycled for it.
func (e *Engine) DrawFromDiscard(gameID int64, playerID int64) (domain.Card, error) {
	unlock := e.lockGame(gameID)
	defer unlock()

	var drawn domain.Card
	err := e.repo.Atomic(gameID, func(s persistence.Store) error {
		state, hand, handCards, err := e.requireDrawable(s, gameID, playerID)
		if err != nil {
			return err
		}

		discardCards, err := s.ListCards(gameID, persistence.FilterLocation(domain.LocationDiscard))
		if err != nil {
			return err
		}
		if len(discardCards) == 0 {
			return domain.Errorf(domain.KindPrecondition, "discard pile is empty")
		}

		top := discardCards[len(discardCards)-1]
		top.Location = domain.LocationPlayerHand
		top.OwnerID = &playerID
		top.Position = nextPosition(handCards)
		if err := s.UpdateCard(gameID, top); err != nil {
			return err
		}

		hand.HasDrawn = true
		if err := s.UpdateHand(hand); err != nil {
			return err
		}

		drawn = top
		return e.touchState(s, &state, fmt.Sprintf("player %d took the discard", playerID))
	})
	if err != nil {
		return domain.Card{}, err
	}

	// Everyone saw the card face-up on the pile, so the event carries it.
	card := drawn
	e.sink.Publish(notify.Event{
		Type:     notify.EventCardDrawn,
		GameID:   gameID,
		PlayerID: playerID,
		Source:   "discard",
		Card:     &card,
	})
	return drawn, nil
}

// DiscardCard moves a card from the caller's hand onto the discard pile and
// passes the turn to the next player.
func (e *Engine) DiscardCard(gameID int64, playerID int64, cardID int64) error {
	unlock := e.lockGame(gameID)
	defer unlock()

	var discarded domain.Card
	err := e.repo.Atomic(gameID, func(s persistence.Store) error {
		state, err := e.requireActiveState(s, gameID)
		if err != nil {
			return err
		}
		if err := e.requireTurn(state, playerID); err != nil {
			return err
		}
		hand, err := e.requireHand(s, gameID, playerID)
		if err != nil {
			return err
		}

		card, err := e.requireHandCard(s, gameID, playerID, cardID)
		if err != nil {
			return err
		}

		discardCards, err := s.ListCards(gameID, persistence.FilterLocation(domain.LocationDiscard))
		if err != nil {
			return err
		}
		card.Location = domain.LocationDiscard
		card.OwnerID = nil
		card.Position = nextPosition(discardCards)
		if err := s.UpdateCard(gameID, card); err != nil {
			return err
		}

		hand.HasDrawn = false
		if err := s.UpdateHand(hand); err != nil {
			return err
		}

		discarded = card
		return e.advanceTurn(s, &state, fmt.Sprintf("player %d discarded", playerID))
	})
	if err != nil {
		return err
	}

	card := discarded
	e.sink.Publish(notify.Event{
		Type:     notify.EventCardDiscarded,
		GameID:   gameID,
		PlayerID: playerID,
		Card:     &card,
	})
	return nil
}

// requireDrawable runs the shared draw preconditions: active game, caller's
// turn, one draw per turn, and room in the hand for one extra card.
func (e *Engine) requireDrawable(s persistence.Store, gameID int64, playerID int64) (domain.TableState, domain.PlayerHand, []domain.Card, error) {
	state, err := e.requireActiveState(s, gameID)
	if err != nil {
		return domain.TableState{}, domain.PlayerHand{}, nil, err
	}
	if err := e.requireTurn(state, playerID); err != nil {
		return domain.TableState{}, domain.PlayerHand{}, nil, err
	}
	hand, err := e.requireHand(s, gameID, playerID)
	if err != nil {
		return domain.TableState{}, domain.PlayerHand{}, nil, err
	}
	if hand.HasDrawn {
		return domain.TableState{}, domain.PlayerHand{}, nil, domain.Errorf(domain.KindPrecondition,
			"player %d already drew this turn", playerID)
	}
	handCards, err := s.ListCards(gameID, persistence.FilterOwner(domain.LocationPlayerHand, playerID))
	if err != nil {
		return domain.TableState{}, domain.PlayerHand{}, nil, err
	}
	if len(handCards) > e.config.HandSize {
		return domain.TableState{}, domain.PlayerHand{}, nil, domain.Errorf(domain.KindPrecondition,
			"player %d must discard before drawing again", playerID)
	}
	return state, hand, handCards, nil
}

// recycleDiscard reshuffles the entire discard pile back into the deck and
// returns the rebuilt deck in draw order.
func (e *Engine) recycleDiscard(s persistence.Store, gameID int64) ([]domain.Card, error) {
	discardCards, err := s.ListCards(gameID, persistence.FilterLocation(domain.LocationDiscard))
	if err != nil {
		return nil, err
	}
	if len(discardCards) == 0 {
		return nil, domain.Errorf(domain.KindPrecondition,
			"deck and discard pile are both empty in game %d", gameID)
	}
	if err := e.shuffler.Shuffle(discardCards); err != nil {
		return nil, fmt.Errorf("reshuffle discard pile for game %d: %w", gameID, err)
	}
	for i := range discardCards {
		discardCards[i].Location = domain.LocationDeck
		discardCards[i].OwnerID = nil
		discardCards[i].Position = i
		if err := s.UpdateCard(gameID, discardCards[i]); err != nil {
			return nil, err
		}
	}
	return discardCards, nil
}

// requireHandCard loads a card and verifies the caller actually holds it.
func (e *Engine) requireHandCard(s persistence.Store, gameID int64, playerID int64, cardID int64) (domain.Card, error) {
	card, ok, err := s.GetCard(gameID, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	if !ok {
		return domain.Card{}, domain.Errorf(domain.KindNotFound,
			"card %d not found in game %d", cardID, gameID)
	}
	if card.Location != domain.LocationPlayerHand || card.OwnerID == nil || *card.OwnerID != playerID {
		return domain.Card{}, domain.Errorf(domain.KindPrecondition,
			"card %d is not in player %d's hand", cardID, playerID)
	}
	return card, nil
}

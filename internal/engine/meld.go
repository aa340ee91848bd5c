package engine

import (
	"fmt"
	"sort"

	"github.com/ayilmaz/rummy-table/internal/domain"
	"github.com/ayilmaz/rummy-table/internal/notify"
	"github.com/ayilmaz/rummy-table/internal/persistence"
	"github.com/ayilmaz/rummy-table/internal/rules"
)

// LayMeld validates the named hand cards as a set or sequence against the
// hidden wildcard rank and, if valid, moves them onto the table as a new meld.
// The first pure sequence a player lays reveals the wildcard rank to them.
func (e *Engine) LayMeld(gameID int64, playerID int64, cardIDs []int64) (rules.Validation, error) {
	unlock := e.lockGame(gameID)
	defer unlock()

	var (
		verdict  rules.Validation
		laid     []int64
		revealed domain.Rank
	)
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

		if len(cardIDs) < 3 {
			return domain.Errorf(domain.KindInvalidInput,
				"a meld needs at least 3 cards, got %d", len(cardIDs))
		}
		seen := make(map[int64]struct{}, len(cardIDs))
		cards := make([]domain.Card, 0, len(cardIDs))
		for _, cardID := range cardIDs {
			if _, dup := seen[cardID]; dup {
				return domain.Errorf(domain.KindInvalidInput, "card %d listed twice", cardID)
			}
			seen[cardID] = struct{}{}
			card, err := e.requireHandCard(s, gameID, playerID, cardID)
			if err != nil {
				return err
			}
			cards = append(cards, card)
		}

		verdict = rules.ValidateMeld(cards, state.HiddenWildcardRank)
		if !verdict.Valid {
			return domain.Errorf(domain.KindRuleViolation,
				"cards do not form a valid set or sequence")
		}

		ordered := orderMeldCards(cards, verdict.Kind, state.HiddenWildcardRank)
		laid = laid[:0]
		for i := range ordered {
			ordered[i].Location = domain.LocationLaid
			ordered[i].Position = i
			if err := s.UpdateCard(gameID, ordered[i]); err != nil {
				return err
			}
			laid = append(laid, ordered[i].ID)
		}

		hand.Melds = append(hand.Melds, domain.Meld(append([]int64(nil), laid...)))
		if verdict.Kind == rules.MeldKindSequence && verdict.Pure && !hand.JokerRevealed {
			hand.JokerRevealed = true
			revealed = state.HiddenWildcardRank
		}
		if err := s.UpdateHand(hand); err != nil {
			return err
		}
		return e.touchState(s, &state, fmt.Sprintf("player %d laid a %s", playerID, verdict.Kind))
	})
	if err != nil {
		return rules.Validation{}, err
	}

	e.sink.Publish(notify.Event{
		Type:     notify.EventMeldLaid,
		GameID:   gameID,
		PlayerID: playerID,
		CardIDs:  laid,
		MeldKind: string(verdict.Kind),
		Pure:     verdict.Pure,
	})
	if revealed != 0 {
		e.sink.Publish(notify.Event{
			Type:         notify.EventWildcardRevealed,
			GameID:       gameID,
			PlayerID:     playerID,
			WildcardRank: revealed.String(),
			Private:      true,
		})
	}
	return verdict, nil
}

// AddToMeld grows one of the caller's laid melds by a single hand card. Sets
// accept a fourth distinct-suit card of the same rank; sequences consult the
// extension resolver and splice the card into place.
func (e *Engine) AddToMeld(gameID int64, playerID int64, meldIndex int, cardID int64) error {
	unlock := e.lockGame(gameID)
	defer unlock()

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
		if meldIndex < 0 || meldIndex >= len(hand.Melds) {
			return domain.Errorf(domain.KindNotFound,
				"player %d has no meld %d", playerID, meldIndex)
		}

		card, err := e.requireHandCard(s, gameID, playerID, cardID)
		if err != nil {
			return err
		}
		meldCards, err := loadMeldCards(s, gameID, hand.Melds[meldIndex])
		if err != nil {
			return err
		}

		verdict := rules.ValidateMeld(meldCards, state.HiddenWildcardRank)
		if !verdict.Valid {
			return domain.Errorf(domain.KindRuleViolation,
				"meld %d is no longer a valid set or sequence", meldIndex)
		}
		union := append(append([]domain.Card(nil), meldCards...), card)
		switch verdict.Kind {
		case rules.MeldKindSequence:
			ext := rules.ResolveExtension(meldCards, card, state.HiddenWildcardRank)
			if !ext.CanExtend {
				return domain.Errorf(domain.KindRuleViolation,
					"card %d does not extend the sequence", cardID)
			}
		default:
			if !rules.ValidateMeld(union, state.HiddenWildcardRank).Valid {
				return domain.Errorf(domain.KindRuleViolation,
					"card %d does not fit the set", cardID)
			}
		}

		ordered := orderMeldCards(union, verdict.Kind, state.HiddenWildcardRank)
		meld := make(domain.Meld, 0, len(ordered))
		for i := range ordered {
			ordered[i].Location = domain.LocationLaid
			ordered[i].Position = i
			if err := s.UpdateCard(gameID, ordered[i]); err != nil {
				return err
			}
			meld = append(meld, ordered[i].ID)
		}
		hand.Melds[meldIndex] = meld
		if err := s.UpdateHand(hand); err != nil {
			return err
		}
		return e.touchState(s, &state, fmt.Sprintf("player %d extended meld %d", playerID, meldIndex))
	})
	if err != nil {
		return err
	}

	idx := meldIndex
	e.sink.Publish(notify.Event{
		Type:      notify.EventMeldExtended,
		GameID:    gameID,
		PlayerID:  playerID,
		CardIDs:   []int64{cardID},
		MeldIndex: &idx,
	})
	return nil
}

// MoveToHand takes one card back out of a laid meld into the caller's hand.
// If the removal leaves the meld invalid or below 3 cards, the whole meld is
// dissolved and every card returns to the hand.
func (e *Engine) MoveToHand(gameID int64, playerID int64, meldIndex int, cardID int64) error {
	unlock := e.lockGame(gameID)
	defer unlock()

	var (
		returned  []int64
		dissolved bool
	)
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
		if meldIndex < 0 || meldIndex >= len(hand.Melds) {
			return domain.Errorf(domain.KindNotFound,
				"player %d has no meld %d", playerID, meldIndex)
		}
		meld := hand.Melds[meldIndex]
		found := false
		for _, id := range meld {
			if id == cardID {
				found = true
				break
			}
		}
		if !found {
			return domain.Errorf(domain.KindNotFound,
				"card %d is not part of meld %d", cardID, meldIndex)
		}

		meldCards, err := loadMeldCards(s, gameID, meld)
		if err != nil {
			return err
		}
		handCards, err := s.ListCards(gameID, persistence.FilterOwner(domain.LocationPlayerHand, playerID))
		if err != nil {
			return err
		}
		next := nextPosition(handCards)

		remaining := make([]domain.Card, 0, len(meldCards)-1)
		var taken domain.Card
		for _, c := range meldCards {
			if c.ID == cardID {
				taken = c
				continue
			}
			remaining = append(remaining, c)
		}

		returned = returned[:0]
		dissolved = !rules.ValidateMeld(remaining, state.HiddenWildcardRank).Valid
		if dissolved {
			for _, c := range meldCards {
				c.Location = domain.LocationPlayerHand
				c.Position = next
				next++
				if err := s.UpdateCard(gameID, c); err != nil {
					return err
				}
				returned = append(returned, c.ID)
			}
			hand.Melds = append(hand.Melds[:meldIndex], hand.Melds[meldIndex+1:]...)
		} else {
			taken.Location = domain.LocationPlayerHand
			taken.Position = next
			if err := s.UpdateCard(gameID, taken); err != nil {
				return err
			}
			returned = append(returned, taken.ID)

			rest := make(domain.Meld, 0, len(remaining))
			for i := range remaining {
				remaining[i].Position = i
				if err := s.UpdateCard(gameID, remaining[i]); err != nil {
					return err
				}
				rest = append(rest, remaining[i].ID)
			}
			hand.Melds[meldIndex] = rest
		}
		if err := s.UpdateHand(hand); err != nil {
			return err
		}
		return e.touchState(s, &state, fmt.Sprintf("player %d took a card back from meld %d", playerID, meldIndex))
	})
	if err != nil {
		return err
	}

	e.sink.Publish(notify.Event{
		Type:      notify.EventCardReturned,
		GameID:    gameID,
		PlayerID:  playerID,
		CardIDs:   returned,
		Dissolved: dissolved,
	})
	return nil
}

// loadMeldCards resolves a meld's card ids to their live rows so every
// re-validation sees current state rather than what was true at lay time.
func loadMeldCards(s persistence.Store, gameID int64, meld domain.Meld) ([]domain.Card, error) {
	cards := make([]domain.Card, 0, len(meld))
	for _, cardID := range meld {
		card, ok, err := s.GetCard(gameID, cardID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.Errorf(domain.KindNotFound,
				"meld card %d not found in game %d", cardID, gameID)
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// orderMeldCards fixes the display order of a meld. Sets keep the order the
// player gave. Sequences are sorted by rank with wildcards slotted into the
// rank gaps they stand in for, extras trailing at the end.
func orderMeldCards(cards []domain.Card, kind rules.MeldKind, wildcard domain.Rank) []domain.Card {
	ordered := append([]domain.Card(nil), cards...)
	if kind != rules.MeldKindSequence {
		return ordered
	}

	naturals := make([]domain.Card, 0, len(ordered))
	wilds := make([]domain.Card, 0, len(ordered))
	for _, c := range ordered {
		if c.IsWildcard(wildcard) {
			wilds = append(wilds, c)
		} else {
			naturals = append(naturals, c)
		}
	}
	sort.Slice(naturals, func(i, j int) bool { return naturals[i].Rank < naturals[j].Rank })

	out := make([]domain.Card, 0, len(ordered))
	for i, c := range naturals {
		out = append(out, c)
		if i == len(naturals)-1 {
			break
		}
		// one wildcard per missing rank between consecutive naturals
		for gap := int(naturals[i+1].Rank) - int(c.Rank) - 1; gap > 0 && len(wilds) > 0; gap-- {
			out = append(out, wilds[0])
			wilds = wilds[1:]
		}
	}
	return append(out, wilds...)
}

package engine

import (
	"github.com/ayilmaz/rummy-table/internal/domain"
	"github.com/ayilmaz/rummy-table/internal/persistence"
	"github.com/ayilmaz/rummy-table/internal/rules"
)

// Snapshot is the table view assembled for clients. Hands appear as counts;
// the face of a card is exposed only once it sits on the discard pile or in
// a laid meld. The wildcard rank is part of the snapshot and fixed for the
// game's lifetime; client UIs decide when to surface it.
type Snapshot struct {
	GameID            int64             `json:"game_id"`
	Name              string            `json:"name"`
	Status            domain.GameStatus `json:"status"`
	WildcardRank      string            `json:"wildcard_rank,omitempty"`
	CurrentTurnPlayer int64             `json:"current_turn_player,omitempty"`
	WinnerID          *int64            `json:"winner_id,omitempty"`
	TurnNumber        int               `json:"turn_number"`
	DeckCount         int               `json:"deck_count"`
	TopDiscard        *domain.Card      `json:"top_discard,omitempty"`
	LastAction        string            `json:"last_action,omitempty"`
	Players           []PlayerView      `json:"players"`
}

type PlayerView struct {
	PlayerID      int64      `json:"player_id"`
	TurnOrder     int        `json:"turn_order"`
	CardCount     int        `json:"card_count"`
	HasDrawn      bool       `json:"has_drawn"`
	JokerRevealed bool       `json:"joker_revealed"`
	Melds         []MeldView `json:"melds"`
}

type MeldView struct {
	Kind  string        `json:"kind"`
	Pure  bool          `json:"pure"`
	Cards []domain.Card `json:"cards"`
}

// GameState assembles the public snapshot. It works on a waiting game too,
// before any deal has happened.
func (e *Engine) GameState(gameID int64) (Snapshot, error) {
	var snap Snapshot
	err := e.repo.Atomic(gameID, func(s persistence.Store) error {
		game, ok, err := s.GetGame(gameID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Errorf(domain.KindNotFound, "game %d not found", gameID)
		}
		snap = Snapshot{
			GameID:  gameID,
			Name:    game.Name,
			Status:  game.Status,
			Players: []PlayerView{},
		}

		var wildcard domain.Rank
		if state, ok, err := s.GetTableState(gameID); err != nil {
			return err
		} else if ok {
			snap.WildcardRank = state.HiddenWildcardRank.String()
			snap.CurrentTurnPlayer = state.CurrentTurnPlayer
			snap.WinnerID = state.WinnerID
			snap.TurnNumber = state.TurnNumber
			snap.LastAction = state.LastAction
			wildcard = state.HiddenWildcardRank
		}

		deckCards, err := s.ListCards(gameID, persistence.FilterLocation(domain.LocationDeck))
		if err != nil {
			return err
		}
		snap.DeckCount = len(deckCards)

		discardCards, err := s.ListCards(gameID, persistence.FilterLocation(domain.LocationDiscard))
		if err != nil {
			return err
		}
		if len(discardCards) > 0 {
			top := discardCards[len(discardCards)-1]
			snap.TopDiscard = &top
		}

		hands, err := s.ListHands(gameID)
		if err != nil {
			return err
		}
		for _, hand := range hands {
			handCards, err := s.ListCards(gameID, persistence.FilterOwner(domain.LocationPlayerHand, hand.PlayerID))
			if err != nil {
				return err
			}
			view := PlayerView{
				PlayerID:      hand.PlayerID,
				TurnOrder:     hand.TurnOrder,
				CardCount:     len(handCards),
				HasDrawn:      hand.HasDrawn,
				JokerRevealed: hand.JokerRevealed,
				Melds:         []MeldView{},
			}
			for _, meld := range hand.Melds {
				meldCards, err := loadMeldCards(s, gameID, meld)
				if err != nil {
					return err
				}
				verdict := rules.ValidateMeld(meldCards, wildcard)
				view.Melds = append(view.Melds, MeldView{
					Kind:  string(verdict.Kind),
					Pure:  verdict.Pure,
					Cards: meldCards,
				})
			}
			snap.Players = append(snap.Players, view)
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// PlayerHandCards returns the full face-up view of one player's hand. The API
// layer restricts it to the hand's owner.
func (e *Engine) PlayerHandCards(gameID int64, playerID int64) ([]domain.Card, error) {
	var cards []domain.Card
	err := e.repo.Atomic(gameID, func(s persistence.Store) error {
		if _, ok, err := s.GetGame(gameID); err != nil {
			return err
		} else if !ok {
			return domain.Errorf(domain.KindNotFound, "game %d not found", gameID)
		}
		if _, err := e.requireHand(s, gameID, playerID); err != nil {
			return err
		}
		var err error
		cards, err = s.ListCards(gameID, persistence.FilterOwner(domain.LocationPlayerHand, playerID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return cards, nil
}

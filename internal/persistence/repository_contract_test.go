package persistence

import (
	"errors"
	"testing"
	"time"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

// runRepositoryContractTests exercises the behavior every Repository
// implementation must share. Backends register themselves with a factory that
// yields an empty repository per subtest.
func runRepositoryContractTests(t *testing.T, mkRepo func(t *testing.T) Repository) {
	t.Helper()

	t.Run("CreateAndGetGame", func(t *testing.T) {
		repo := mkRepo(t)

		record := testGameRecord(1)
		if err := repo.CreateGame(record); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		got, ok, err := repo.GetGame(1)
		if err != nil {
			t.Fatalf("GetGame failed: %v", err)
		}
		if !ok {
			t.Fatal("game not found after create")
		}
		if got.Name != record.Name || got.MaxPlayers != record.MaxPlayers || got.Status != record.Status {
			t.Fatalf("got %+v, want %+v", got, record)
		}

		if _, ok, err := repo.GetGame(99); err != nil || ok {
			t.Fatalf("GetGame(99) = ok %v err %v, want missing", ok, err)
		}
	})

	t.Run("CreateGameDuplicate", func(t *testing.T) {
		repo := mkRepo(t)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if err := repo.CreateGame(testGameRecord(1)); !errors.Is(err, ErrGameAlreadyExists) {
			t.Fatalf("duplicate create = %v, want ErrGameAlreadyExists", err)
		}
	})

	t.Run("UpdateGameStatus", func(t *testing.T) {
		repo := mkRepo(t)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if err := repo.UpdateGameStatus(1, domain.GameStatusInProgress); err != nil {
			t.Fatalf("UpdateGameStatus failed: %v", err)
		}
		got, _, err := repo.GetGame(1)
		if err != nil {
			t.Fatalf("GetGame failed: %v", err)
		}
		if got.Status != domain.GameStatusInProgress {
			t.Fatalf("status = %s, want in_progress", got.Status)
		}
		if err := repo.UpdateGameStatus(99, domain.GameStatusFinished); !errors.Is(err, ErrGameNotFound) {
			t.Fatalf("missing game update = %v, want ErrGameNotFound", err)
		}
	})

	t.Run("CardsRoundTripWithFilters", func(t *testing.T) {
		repo := mkRepo(t)
		owner := int64(7)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		cards := []domain.Card{
			{ID: 1, Suit: domain.SuitHearts, Rank: 5, Location: domain.LocationDeck, Position: 1},
			{ID: 2, Suit: domain.SuitClubs, Rank: 9, Location: domain.LocationDeck, Position: 0},
			{ID: 3, Suit: domain.SuitSpades, Rank: 2, Location: domain.LocationPlayerHand, OwnerID: &owner, Position: 0},
			{ID: 4, Suit: domain.SuitDiamonds, Rank: 11, Location: domain.LocationDiscard, Position: 0},
		}
		if err := repo.ReplaceCards(1, cards); err != nil {
			t.Fatalf("ReplaceCards failed: %v", err)
		}

		deck, err := repo.ListCards(1, FilterLocation(domain.LocationDeck))
		if err != nil {
			t.Fatalf("ListCards failed: %v", err)
		}
		if len(deck) != 2 || deck[0].ID != 2 || deck[1].ID != 1 {
			t.Fatalf("deck = %+v, want cards 2,1 ordered by position", deck)
		}

		hand, err := repo.ListCards(1, FilterOwner(domain.LocationPlayerHand, owner))
		if err != nil {
			t.Fatalf("ListCards failed: %v", err)
		}
		if len(hand) != 1 || hand[0].ID != 3 {
			t.Fatalf("hand = %+v, want card 3", hand)
		}

		card, ok, err := repo.GetCard(1, 4)
		if err != nil || !ok {
			t.Fatalf("GetCard(4) = ok %v err %v", ok, err)
		}
		if card.Location != domain.LocationDiscard {
			t.Fatalf("card 4 in %s, want discard", card.Location)
		}

		card.Location = domain.LocationPlayerHand
		card.OwnerID = &owner
		card.Position = 1
		if err := repo.UpdateCard(1, card); err != nil {
			t.Fatalf("UpdateCard failed: %v", err)
		}
		hand, err = repo.ListCards(1, FilterOwner(domain.LocationPlayerHand, owner))
		if err != nil {
			t.Fatalf("ListCards failed: %v", err)
		}
		if len(hand) != 2 {
			t.Fatalf("hand has %d cards after move, want 2", len(hand))
		}

		if err := repo.UpdateCard(1, domain.Card{ID: 99, Suit: domain.SuitHearts, Rank: 2, Location: domain.LocationDeck}); !errors.Is(err, ErrCardNotFound) {
			t.Fatalf("missing card update = %v, want ErrCardNotFound", err)
		}
	})

	t.Run("ReplaceCardsClearsPreviousDeal", func(t *testing.T) {
		repo := mkRepo(t)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		first := []domain.Card{{ID: 1, Suit: domain.SuitHearts, Rank: 5, Location: domain.LocationDeck}}
		if err := repo.ReplaceCards(1, first); err != nil {
			t.Fatalf("ReplaceCards failed: %v", err)
		}
		second := []domain.Card{{ID: 2, Suit: domain.SuitClubs, Rank: 9, Location: domain.LocationDeck}}
		if err := repo.ReplaceCards(1, second); err != nil {
			t.Fatalf("ReplaceCards failed: %v", err)
		}

		if _, ok, err := repo.GetCard(1, 1); err != nil || ok {
			t.Fatalf("card 1 survived the replace: ok %v err %v", ok, err)
		}
		if _, ok, err := repo.GetCard(1, 2); err != nil || !ok {
			t.Fatalf("card 2 missing after replace: ok %v err %v", ok, err)
		}
	})

	t.Run("HandsRoundTrip", func(t *testing.T) {
		repo := mkRepo(t)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		hands := []domain.PlayerHand{
			{GameID: 1, PlayerID: 20, TurnOrder: 1, Melds: []domain.Meld{}},
			{GameID: 1, PlayerID: 10, TurnOrder: 0, Melds: []domain.Meld{{1, 2, 3}}},
		}
		if err := repo.ReplaceHands(1, hands); err != nil {
			t.Fatalf("ReplaceHands failed: %v", err)
		}

		listed, err := repo.ListHands(1)
		if err != nil {
			t.Fatalf("ListHands failed: %v", err)
		}
		if len(listed) != 2 || listed[0].PlayerID != 10 || listed[1].PlayerID != 20 {
			t.Fatalf("hands = %+v, want players 10,20 ordered by turn", listed)
		}
		if len(listed[0].Melds) != 1 || len(listed[0].Melds[0]) != 3 {
			t.Fatalf("melds did not survive the round trip: %+v", listed[0].Melds)
		}

		hand, ok, err := repo.GetHand(1, 20)
		if err != nil || !ok {
			t.Fatalf("GetHand(20) = ok %v err %v", ok, err)
		}
		hand.HasDrawn = true
		hand.JokerRevealed = true
		hand.Melds = append(hand.Melds, domain.Meld{4, 5, 6})
		if err := repo.UpdateHand(hand); err != nil {
			t.Fatalf("UpdateHand failed: %v", err)
		}
		got, _, err := repo.GetHand(1, 20)
		if err != nil {
			t.Fatalf("GetHand failed: %v", err)
		}
		if !got.HasDrawn || !got.JokerRevealed || len(got.Melds) != 1 {
			t.Fatalf("updated hand = %+v", got)
		}

		if err := repo.UpdateHand(domain.PlayerHand{GameID: 1, PlayerID: 99}); !errors.Is(err, ErrHandNotFound) {
			t.Fatalf("missing hand update = %v, want ErrHandNotFound", err)
		}
	})

	t.Run("TableStateUpsert", func(t *testing.T) {
		repo := mkRepo(t)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if _, ok, err := repo.GetTableState(1); err != nil || ok {
			t.Fatalf("fresh game has state: ok %v err %v", ok, err)
		}

		now := time.Now().UTC().Truncate(time.Microsecond)
		state := domain.TableState{
			GameID:             1,
			CurrentTurnPlayer:  10,
			HiddenWildcardRank: domain.RankQueen,
			TurnNumber:         1,
			LastAction:         "game started",
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := repo.PutTableState(state); err != nil {
			t.Fatalf("PutTableState failed: %v", err)
		}

		winner := int64(10)
		state.CurrentTurnPlayer = 20
		state.TurnNumber = 9
		state.WinnerID = &winner
		state.LastAction = "player 10 won"
		if err := repo.PutTableState(state); err != nil {
			t.Fatalf("PutTableState update failed: %v", err)
		}

		got, ok, err := repo.GetTableState(1)
		if err != nil || !ok {
			t.Fatalf("GetTableState = ok %v err %v", ok, err)
		}
		if got.CurrentTurnPlayer != 20 || got.TurnNumber != 9 {
			t.Fatalf("state = %+v", got)
		}
		if got.HiddenWildcardRank != domain.RankQueen {
			t.Fatalf("wildcard rank = %d, want queen", got.HiddenWildcardRank)
		}
		if got.WinnerID == nil || *got.WinnerID != 10 {
			t.Fatalf("winner = %v, want 10", got.WinnerID)
		}
	})

	t.Run("AtomicRollsBackOnError", func(t *testing.T) {
		repo := mkRepo(t)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		cards := []domain.Card{{ID: 1, Suit: domain.SuitHearts, Rank: 5, Location: domain.LocationDeck}}
		if err := repo.ReplaceCards(1, cards); err != nil {
			t.Fatalf("ReplaceCards failed: %v", err)
		}

		boom := errors.New("boom")
		err := repo.Atomic(1, func(s Store) error {
			card, _, err := s.GetCard(1, 1)
			if err != nil {
				return err
			}
			card.Location = domain.LocationDiscard
			if err := s.UpdateCard(1, card); err != nil {
				return err
			}
			if err := s.UpdateGameStatus(1, domain.GameStatusFinished); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Atomic = %v, want the injected error", err)
		}

		card, _, err := repo.GetCard(1, 1)
		if err != nil {
			t.Fatalf("GetCard failed: %v", err)
		}
		if card.Location != domain.LocationDeck {
			t.Fatalf("card location = %s after rollback, want deck", card.Location)
		}
		game, _, err := repo.GetGame(1)
		if err != nil {
			t.Fatalf("GetGame failed: %v", err)
		}
		if game.Status != domain.GameStatusWaiting {
			t.Fatalf("status = %s after rollback, want waiting", game.Status)
		}
	})

	t.Run("AtomicCommits", func(t *testing.T) {
		repo := mkRepo(t)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		err := repo.Atomic(1, func(s Store) error {
			return s.UpdateGameStatus(1, domain.GameStatusInProgress)
		})
		if err != nil {
			t.Fatalf("Atomic failed: %v", err)
		}
		game, _, err := repo.GetGame(1)
		if err != nil {
			t.Fatalf("GetGame failed: %v", err)
		}
		if game.Status != domain.GameStatusInProgress {
			t.Fatalf("status = %s after commit, want in_progress", game.Status)
		}
	})

	t.Run("GamesAreIsolated", func(t *testing.T) {
		repo := mkRepo(t)

		if err := repo.CreateGame(testGameRecord(1)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if err := repo.CreateGame(testGameRecord(2)); err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if err := repo.ReplaceCards(1, []domain.Card{{ID: 1, Suit: domain.SuitHearts, Rank: 5, Location: domain.LocationDeck}}); err != nil {
			t.Fatalf("ReplaceCards failed: %v", err)
		}

		other, err := repo.ListCards(2, CardFilter{})
		if err != nil {
			t.Fatalf("ListCards failed: %v", err)
		}
		if len(other) != 0 {
			t.Fatalf("game 2 sees %d cards from game 1", len(other))
		}
		if _, ok, err := repo.GetCard(2, 1); err != nil || ok {
			t.Fatalf("game 2 resolves game 1's card: ok %v err %v", ok, err)
		}
	})
}

func testGameRecord(id int64) GameRecord {
	return GameRecord{
		ID:         id,
		Name:       "contract game",
		MaxPlayers: domain.DefaultMaxPlayers,
		Status:     domain.GameStatusWaiting,
		CreatedBy:  1,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}
}

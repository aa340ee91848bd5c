package persistence

import (
	"sync"
	"testing"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

func TestInMemoryRepository_Contract(t *testing.T) {
	t.Parallel()
	runRepositoryContractTests(t, func(t *testing.T) Repository {
		t.Helper()
		return NewInMemoryRepository()
	})
}

func TestInMemoryRepository_ReadsReturnCopies(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	if err := repo.CreateGame(testGameRecord(1)); err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if err := repo.ReplaceCards(1, []domain.Card{
		{ID: 1, Suit: domain.SuitHearts, Rank: 5, Location: domain.LocationDeck},
	}); err != nil {
		t.Fatalf("ReplaceCards failed: %v", err)
	}

	card, _, err := repo.GetCard(1, 1)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	card.Location = domain.LocationDiscard

	again, _, err := repo.GetCard(1, 1)
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if again.Location != domain.LocationDeck {
		t.Fatal("mutating a returned card leaked into the store")
	}
}

func TestInMemoryRepository_ConcurrentAtomicUnits(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	if err := repo.CreateGame(testGameRecord(1)); err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if err := repo.PutTableState(domain.TableState{
		GameID:             1,
		CurrentTurnPlayer:  10,
		HiddenWildcardRank: domain.RankQueen,
		TurnNumber:         0,
	}); err != nil {
		t.Fatalf("PutTableState failed: %v", err)
	}

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			err := repo.Atomic(1, func(s Store) error {
				state, _, err := s.GetTableState(1)
				if err != nil {
					return err
				}
				state.TurnNumber++
				return s.PutTableState(state)
			})
			if err != nil {
				t.Errorf("Atomic failed: %v", err)
			}
		}()
	}
	wg.Wait()

	state, _, err := repo.GetTableState(1)
	if err != nil {
		t.Fatalf("GetTableState failed: %v", err)
	}
	if state.TurnNumber != workers {
		t.Fatalf("turn number = %d after %d increments", state.TurnNumber, workers)
	}
}

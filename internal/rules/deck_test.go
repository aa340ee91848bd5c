package rules

import (
	"reflect"
	"testing"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

func TestNewDeckHasUniqueCards(t *testing.T) {
	t.Parallel()

	deck := NewDeck()
	if len(deck) != domain.DeckSize {
		t.Fatalf("deck has %d cards, want %d", len(deck), domain.DeckSize)
	}

	seenIDs := make(map[int64]struct{}, len(deck))
	seenFaces := make(map[string]struct{}, len(deck))
	for _, card := range deck {
		if _, dup := seenIDs[card.ID]; dup {
			t.Fatalf("duplicate card id %d", card.ID)
		}
		seenIDs[card.ID] = struct{}{}
		face := string(card.Suit) + card.Rank.String()
		if _, dup := seenFaces[face]; dup {
			t.Fatalf("duplicate card %s", face)
		}
		seenFaces[face] = struct{}{}
		if card.Location != domain.LocationDeck {
			t.Fatalf("card %d starts in %s, want deck", card.ID, card.Location)
		}
	}
}

func TestNewDeckIDsAreStable(t *testing.T) {
	t.Parallel()

	if !reflect.DeepEqual(NewDeck(), NewDeck()) {
		t.Fatal("two fresh decks must be identical before shuffling")
	}
}

func TestBuildDeckAssignsPositions(t *testing.T) {
	t.Parallel()

	deck, err := BuildDeck(NewSeededShuffler(1))
	if err != nil {
		t.Fatalf("build deck: %v", err)
	}
	for i, card := range deck {
		if card.Position != i {
			t.Fatalf("card %d at position %d, want %d", card.ID, card.Position, i)
		}
	}
}

func TestSeededShufflerIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := BuildDeck(NewSeededShuffler(99))
	if err != nil {
		t.Fatalf("build deck: %v", err)
	}
	second, err := BuildDeck(NewSeededShuffler(99))
	if err != nil {
		t.Fatalf("build deck: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed must produce the same deck order")
	}

	other, err := BuildDeck(NewSeededShuffler(100))
	if err != nil {
		t.Fatalf("build deck: %v", err)
	}
	if reflect.DeepEqual(first, other) {
		t.Fatal("different seeds produced identical deck order")
	}
}

func TestCryptoShufflerKeepsAllCards(t *testing.T) {
	t.Parallel()

	deck, err := BuildDeck(NewCryptoShuffler())
	if err != nil {
		t.Fatalf("build deck: %v", err)
	}
	seen := make(map[int64]struct{}, len(deck))
	for _, card := range deck {
		seen[card.ID] = struct{}{}
	}
	if len(seen) != domain.DeckSize {
		t.Fatalf("shuffle lost cards: %d unique ids, want %d", len(seen), domain.DeckSize)
	}
}

func TestPickIndexBounds(t *testing.T) {
	t.Parallel()

	for _, shuffler := range []Shuffler{NewCryptoShuffler(), NewSeededShuffler(7)} {
		if _, err := shuffler.PickIndex(0); err == nil {
			t.Fatal("bound 0 must be rejected")
		}
		for i := 0; i < 50; i++ {
			idx, err := shuffler.PickIndex(13)
			if err != nil {
				t.Fatalf("pick index: %v", err)
			}
			if idx < 0 || idx >= 13 {
				t.Fatalf("index %d out of range", idx)
			}
		}
	}
}

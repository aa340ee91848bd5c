package rules

import (
	cryptorand "crypto/rand"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

// Shuffler is the injected randomness source for deck building and the
// hidden wildcard pick, so both are deterministic under a seeded generator.
type Shuffler interface {
	Shuffle(cards []domain.Card) error
	PickIndex(n int) (int, error)
}

type cryptoShuffler struct{}

type seededShuffler struct {
	rng *rand.Rand
}

func NewCryptoShuffler() Shuffler {
	return cryptoShuffler{}
}

func NewSeededShuffler(seed int64) Shuffler {
	return seededShuffler{rng: rand.New(rand.NewSource(seed))}
}

func (s cryptoShuffler) Shuffle(cards []domain.Card) error {
	for i := len(cards) - 1; i > 0; i-- {
		j, err := s.PickIndex(i + 1)
		if err != nil {
			return fmt.Errorf("crypto shuffle failed: %w", err)
		}
		cards[i], cards[j] = cards[j], cards[i]
	}
	return nil
}

func (s cryptoShuffler) PickIndex(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("pick index bound must be positive, got %d", n)
	}
	v, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}

func (s seededShuffler) Shuffle(cards []domain.Card) error {
	for i := len(cards) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	return nil
}

func (s seededShuffler) PickIndex(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("pick index bound must be positive, got %d", n)
	}
	return s.rng.Intn(n), nil
}

// NewDeck returns the 52 cards of a standard deck in suit/rank order, all in
// the deck location. Card ids are stable per (suit, rank) pair.
func NewDeck() []domain.Card {
	cards := make([]domain.Card, 0, domain.DeckSize)
	id := int64(1)
	for _, suit := range domain.Suits() {
		for _, rank := range domain.Ranks() {
			cards = append(cards, domain.NewCard(id, suit, rank))
			id++
		}
	}
	return cards
}

// BuildDeck produces a freshly shuffled deck with positions assigned by the
// shuffle permutation; position 0 is the top of the deck.
func BuildDeck(shuffler Shuffler) ([]domain.Card, error) {
	if shuffler == nil {
		shuffler = NewCryptoShuffler()
	}
	cards := NewDeck()
	if err := shuffler.Shuffle(cards); err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].Position = i
	}
	return cards, nil
}

package rules

import (
	"testing"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

func card(id int64, suit domain.Suit, rank domain.Rank) domain.Card {
	return domain.NewCard(id, suit, rank)
}

func TestValidateMeld(t *testing.T) {
	t.Parallel()

	wildcard := domain.RankQueen
	tests := []struct {
		name  string
		cards []domain.Card
		valid bool
		kind  MeldKind
		pure  bool
	}{
		{
			name: "set of three distinct suits",
			cards: []domain.Card{
				card(1, domain.SuitHearts, 9),
				card(2, domain.SuitDiamonds, 9),
				card(3, domain.SuitClubs, 9),
			},
			valid: true,
			kind:  MeldKindSet,
		},
		{
			name: "set of four distinct suits",
			cards: []domain.Card{
				card(1, domain.SuitHearts, 9),
				card(2, domain.SuitDiamonds, 9),
				card(3, domain.SuitClubs, 9),
				card(4, domain.SuitSpades, 9),
			},
			valid: true,
			kind:  MeldKindSet,
		},
		{
			name: "set with repeated suit",
			cards: []domain.Card{
				card(1, domain.SuitHearts, 9),
				card(2, domain.SuitDiamonds, 9),
				card(3, domain.SuitHearts, 9),
			},
		},
		{
			name: "wildcard lifts the suit restriction",
			cards: []domain.Card{
				card(1, domain.SuitHearts, 9),
				card(2, domain.SuitHearts, 9),
				card(3, domain.SuitSpades, domain.RankQueen),
			},
			valid: true,
			kind:  MeldKindSet,
		},
		{
			name: "set of mixed ranks",
			cards: []domain.Card{
				card(1, domain.SuitHearts, 9),
				card(2, domain.SuitDiamonds, 9),
				card(3, domain.SuitClubs, 8),
			},
		},
		{
			name: "two cards is never a meld",
			cards: []domain.Card{
				card(1, domain.SuitHearts, 9),
				card(2, domain.SuitDiamonds, 9),
			},
		},
		{
			name: "five of a rank overflows a set",
			cards: []domain.Card{
				card(1, domain.SuitHearts, 9),
				card(2, domain.SuitDiamonds, 9),
				card(3, domain.SuitClubs, 9),
				card(4, domain.SuitSpades, 9),
				card(5, domain.SuitHearts, 9),
			},
		},
		{
			name: "pure sequence",
			cards: []domain.Card{
				card(1, domain.SuitSpades, 5),
				card(2, domain.SuitSpades, 6),
				card(3, domain.SuitSpades, 7),
			},
			valid: true,
			kind:  MeldKindSequence,
			pure:  true,
		},
		{
			name: "sequence given out of order",
			cards: []domain.Card{
				card(1, domain.SuitSpades, 7),
				card(2, domain.SuitSpades, 5),
				card(3, domain.SuitSpades, 6),
			},
			valid: true,
			kind:  MeldKindSequence,
			pure:  true,
		},
		{
			name: "wildcard fills a rank gap",
			cards: []domain.Card{
				card(1, domain.SuitSpades, 5),
				card(2, domain.SuitHearts, domain.RankQueen),
				card(3, domain.SuitSpades, 7),
			},
			valid: true,
			kind:  MeldKindSequence,
		},
		{
			name: "wildcard extends past the end",
			cards: []domain.Card{
				card(1, domain.SuitSpades, 5),
				card(2, domain.SuitSpades, 6),
				card(3, domain.SuitHearts, domain.RankQueen),
			},
			valid: true,
			kind:  MeldKindSequence,
		},
		{
			name: "two gaps with one wildcard",
			cards: []domain.Card{
				card(1, domain.SuitSpades, 5),
				card(2, domain.SuitHearts, domain.RankQueen),
				card(3, domain.SuitSpades, 8),
			},
		},
		{
			name: "mixed suits in a sequence",
			cards: []domain.Card{
				card(1, domain.SuitSpades, 5),
				card(2, domain.SuitHearts, 6),
				card(3, domain.SuitSpades, 7),
			},
		},
		{
			name: "duplicate rank in a sequence",
			cards: []domain.Card{
				card(1, domain.SuitSpades, 5),
				card(2, domain.SuitSpades, 5),
				card(3, domain.SuitSpades, 6),
			},
		},
		{
			name: "no wraparound past the king",
			cards: []domain.Card{
				card(1, domain.SuitSpades, domain.RankKing),
				card(2, domain.SuitSpades, domain.RankAce),
				card(3, domain.SuitSpades, 2),
			},
		},
		{
			name: "ace anchors the low end",
			cards: []domain.Card{
				card(1, domain.SuitSpades, domain.RankAce),
				card(2, domain.SuitSpades, 2),
				card(3, domain.SuitSpades, 3),
			},
			valid: true,
			kind:  MeldKindSequence,
			pure:  true,
		},
		{
			name: "all wildcards has no anchor",
			cards: []domain.Card{
				card(1, domain.SuitSpades, domain.RankQueen),
				card(2, domain.SuitHearts, domain.RankQueen),
				card(3, domain.SuitClubs, domain.RankQueen),
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ValidateMeld(tt.cards, wildcard)
			if got.Valid != tt.valid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.valid)
			}
			if !tt.valid {
				return
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %s, want %s", got.Kind, tt.kind)
			}
			if got.Pure != tt.pure {
				t.Fatalf("Pure = %v, want %v", got.Pure, tt.pure)
			}
		})
	}
}

func TestValidateMeldPrefersSetOverSequence(t *testing.T) {
	t.Parallel()

	// One nine plus two wildcards reads as a set of nines or as an 8-9-10
	// stand-in; the set interpretation wins.
	verdict := ValidateMeld([]domain.Card{
		card(1, domain.SuitHearts, 9),
		card(2, domain.SuitSpades, domain.RankQueen),
		card(3, domain.SuitClubs, domain.RankQueen),
	}, domain.RankQueen)
	if !verdict.Valid || verdict.Kind != MeldKindSet {
		t.Fatalf("verdict = %+v, want a set", verdict)
	}
}

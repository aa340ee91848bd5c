package rules

import (
	"sort"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

type ExtendPosition string

const (
	ExtendStart  ExtendPosition = "start"
	ExtendEnd    ExtendPosition = "end"
	ExtendMiddle ExtendPosition = "middle"
)

// Extension is the verdict on inserting one candidate card into an
// already-valid laid sequence.
type Extension struct {
	CanExtend bool
	Position  ExtendPosition
}

// ResolveExtension decides whether and where the candidate fits into the laid
// sequence. The sequence is revalidated from the cards handed in; callers must
// not rely on an earlier validation result.
func ResolveExtension(sequence []domain.Card, candidate domain.Card, wildcard domain.Rank) Extension {
	if ok, _ := validateSequence(sequence, wildcard); !ok {
		return Extension{}
	}

	naturals, wilds := splitWildcards(sequence, wildcard)
	suit := naturals[0].Suit

	if candidate.IsWildcard(wildcard) {
		return resolveWildcardExtension(sequence, naturals)
	}
	if candidate.Suit != suit {
		return Extension{}
	}

	ranks, _ := sortedUniqueRanks(naturals)
	minRank, maxRank := ranks[0], ranks[len(ranks)-1]
	if candidate.Rank == minRank-1 && minRank > domain.RankAce {
		return Extension{CanExtend: true, Position: ExtendStart}
	}
	if candidate.Rank == maxRank+1 && maxRank < domain.RankKing {
		return Extension{CanExtend: true, Position: ExtendEnd}
	}
	if candidate.Rank > minRank && candidate.Rank < maxRank {
		// Internal slot: reject duplicates, then recheck gap coverage over
		// the union of existing ranks and the candidate.
		for _, r := range ranks {
			if r == candidate.Rank {
				return Extension{}
			}
		}
		union := append(append([]domain.Rank(nil), ranks...), candidate.Rank)
		sort.Slice(union, func(i, j int) bool { return union[i] < union[j] })
		if rankGaps(union) > len(wilds) {
			return Extension{}
		}
		return Extension{CanExtend: true, Position: ExtendMiddle}
	}
	return Extension{}
}

// resolveWildcardExtension places an additional wildcard on whichever end of
// the sequence still has room; a sequence already spanning all thirteen slots
// cannot grow.
func resolveWildcardExtension(sequence []domain.Card, naturals []domain.Card) Extension {
	if len(sequence) >= 13 {
		return Extension{}
	}
	ranks, _ := sortedUniqueRanks(naturals)
	minRank, maxRank := ranks[0], ranks[len(ranks)-1]
	spare := len(sequence) - len(naturals) - rankGaps(ranks)
	top := int(maxRank) + spare
	if top < int(domain.RankKing) {
		return Extension{CanExtend: true, Position: ExtendEnd}
	}
	if minRank > domain.RankAce {
		return Extension{CanExtend: true, Position: ExtendStart}
	}
	return Extension{}
}

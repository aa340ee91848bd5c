package rules

import (
	"sort"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

type MeldKind string

const (
	MeldKindSet      MeldKind = "set"
	MeldKindSequence MeldKind = "sequence"
)

// Validation is the outcome of judging one card group. Pure is meaningful
// only for sequences: a pure sequence contains no wildcard and its ranks are
// exactly consecutive.
type Validation struct {
	Valid bool
	Kind  MeldKind
	Pure  bool
}

// ValidateMeld decides whether the cards form a valid set or sequence under
// the game's hidden wildcard rank. Sets and sequences are mutually exclusive
// per group; a group that satisfies both rules counts as a set.
func ValidateMeld(cards []domain.Card, wildcard domain.Rank) Validation {
	if len(cards) < 3 {
		return Validation{}
	}
	if validateSet(cards, wildcard) {
		return Validation{Valid: true, Kind: MeldKindSet}
	}
	if ok, pure := validateSequence(cards, wildcard); ok {
		return Validation{Valid: true, Kind: MeldKindSequence, Pure: pure}
	}
	return Validation{}
}

// validateSet: 3 or 4 cards sharing one rank, wildcards substituting freely.
// A wildcard-free set must not repeat a suit; once a wildcard participates the
// suit restriction is lifted. A group made entirely of wildcards has no rank
// to anchor it and is invalid.
func validateSet(cards []domain.Card, wildcard domain.Rank) bool {
	if len(cards) != 3 && len(cards) != 4 {
		return false
	}
	naturals, wilds := splitWildcards(cards, wildcard)
	if len(naturals) == 0 {
		return false
	}
	rank := naturals[0].Rank
	for _, card := range naturals[1:] {
		if card.Rank != rank {
			return false
		}
	}
	if len(wilds) == 0 {
		suits := make(map[domain.Suit]struct{}, len(naturals))
		for _, card := range naturals {
			if _, seen := suits[card.Suit]; seen {
				return false
			}
			suits[card.Suit] = struct{}{}
		}
	}
	return true
}

// validateSequence: at least 3 cards, non-wildcards sharing one suit, ranks
// strictly increasing A(1)..K(13) with every gap covered by a wildcard.
// Duplicate natural ranks invalidate the group unconditionally.
func validateSequence(cards []domain.Card, wildcard domain.Rank) (valid bool, pure bool) {
	if len(cards) < 3 {
		return false, false
	}
	naturals, wilds := splitWildcards(cards, wildcard)
	if len(naturals) == 0 {
		return false, false
	}
	suit := naturals[0].Suit
	for _, card := range naturals[1:] {
		if card.Suit != suit {
			return false, false
		}
	}
	ranks, ok := sortedUniqueRanks(naturals)
	if !ok {
		return false, false
	}
	if rankGaps(ranks) > len(wilds) {
		return false, false
	}
	return true, len(wilds) == 0
}

func splitWildcards(cards []domain.Card, wildcard domain.Rank) (naturals []domain.Card, wilds []domain.Card) {
	for _, card := range cards {
		if card.IsWildcard(wildcard) {
			wilds = append(wilds, card)
		} else {
			naturals = append(naturals, card)
		}
	}
	return naturals, wilds
}

// sortedUniqueRanks returns the natural ranks in ascending order, reporting
// false on a duplicate.
func sortedUniqueRanks(naturals []domain.Card) ([]domain.Rank, bool) {
	ranks := make([]domain.Rank, 0, len(naturals))
	for _, card := range naturals {
		ranks = append(ranks, card.Rank)
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] < ranks[j] })
	for i := 1; i < len(ranks); i++ {
		if ranks[i] == ranks[i-1] {
			return nil, false
		}
	}
	return ranks, true
}

// rankGaps counts the missing consecutive slots between sorted unique ranks.
func rankGaps(ranks []domain.Rank) int {
	gaps := 0
	for i := 1; i < len(ranks); i++ {
		gaps += int(ranks[i]-ranks[i-1]) - 1
	}
	return gaps
}

package domain

import (
	"fmt"
	"time"
)

const (
	// DeckSize is the number of cards in a single standard deck.
	DeckSize = 52

	// DefaultHandSize is the number of cards dealt to each player.
	DefaultHandSize = 13

	// DefaultMaxPlayers is the seat limit a game may be configured with.
	DefaultMaxPlayers uint8 = 4

	// MinPlayers is the smallest number of players a game can start with.
	MinPlayers = 2
)

type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

func Suits() []Suit {
	return []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}
}

// Rank runs A(1) through K(13). There is no wraparound: a sequence may not
// pass K back to A.
type Rank uint8

const (
	RankAce   Rank = 1
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
)

func NewRank(value uint8) (Rank, error) {
	if value < 1 || value > 13 {
		return 0, fmt.Errorf("rank must be in range 1..=13, got %d", value)
	}
	return Rank(value), nil
}

var rankNames = [...]string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

func (r Rank) String() string {
	if r < 1 || r > 13 {
		return fmt.Sprintf("rank(%d)", uint8(r))
	}
	return rankNames[r-1]
}

func ParseRank(s string) (Rank, error) {
	for i, name := range rankNames {
		if name == s {
			return Rank(i + 1), nil
		}
	}
	return 0, fmt.Errorf("unknown rank %q", s)
}

func Ranks() []Rank {
	out := make([]Rank, 0, 13)
	for r := RankAce; r <= RankKing; r++ {
		out = append(out, r)
	}
	return out
}

type CardLocation string

const (
	LocationDeck       CardLocation = "deck"
	LocationDiscard    CardLocation = "discard"
	LocationPlayerHand CardLocation = "player_hand"
	LocationLaid       CardLocation = "laid"
)

// Card is one of the 52 rows created per game at initialization. It is
// mutated in place as it moves between locations and never deleted until the
// game is re-initialized.
type Card struct {
	ID       int64        `json:"id"`
	Suit     Suit         `json:"suit"`
	Rank     Rank         `json:"rank"`
	Location CardLocation `json:"location"`
	OwnerID  *int64       `json:"owner_id,omitempty"`
	Position int          `json:"position"`
}

func NewCard(id int64, suit Suit, rank Rank) Card {
	return Card{ID: id, Suit: suit, Rank: rank, Location: LocationDeck}
}

// IsWildcard reports whether the card carries the game's hidden wildcard rank.
func (c Card) IsWildcard(wildcard Rank) bool {
	return wildcard != 0 && c.Rank == wildcard
}

// Validate enforces the owner invariant: an owner is present iff the card is
// in a player's hand or laid on the table.
func (c Card) Validate() error {
	owned := c.Location == LocationPlayerHand || c.Location == LocationLaid
	if owned && c.OwnerID == nil {
		return fmt.Errorf("card %d in %s has no owner", c.ID, c.Location)
	}
	if !owned && c.OwnerID != nil {
		return fmt.Errorf("card %d in %s must not have an owner", c.ID, c.Location)
	}
	return nil
}

// Meld is an ordered group of card ids laid by one player. Validity is always
// recomputed from the current card rows, never cached.
type Meld []int64

// PlayerHand is the per (game, player) seat record.
type PlayerHand struct {
	GameID        int64  `json:"game_id"`
	PlayerID      int64  `json:"player_id"`
	TurnOrder     int    `json:"turn_order"`
	Melds         []Meld `json:"melds"`
	HasDrawn      bool   `json:"has_drawn"`
	JokerRevealed bool   `json:"joker_revealed"`
}

// TableState is the per-game singleton row owning turn sequencing and the
// hidden wildcard rank, which is constant for the game's lifetime.
type TableState struct {
	GameID             int64     `json:"game_id"`
	CurrentTurnPlayer  int64     `json:"current_turn_player"`
	HiddenWildcardRank Rank      `json:"hidden_wildcard_rank"`
	WinnerID           *int64    `json:"winner_id,omitempty"`
	TurnNumber         int       `json:"turn_number"`
	LastAction         string    `json:"last_action"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type GameStatus string

const (
	GameStatusWaiting    GameStatus = "waiting"
	GameStatusInProgress GameStatus = "in_progress"
	GameStatusFinished   GameStatus = "finished"
)

type TableConfig struct {
	MaxPlayers uint8 `json:"max_players"`
	HandSize   int   `json:"hand_size"`
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		MaxPlayers: DefaultMaxPlayers,
		HandSize:   DefaultHandSize,
	}
}

func (c TableConfig) Validate() error {
	if c.MaxPlayers < MinPlayers || c.MaxPlayers > DefaultMaxPlayers {
		return fmt.Errorf("max_players must be in range %d..=%d, got %d", MinPlayers, DefaultMaxPlayers, c.MaxPlayers)
	}
	if c.HandSize < 1 {
		return fmt.Errorf("hand_size must be positive, got %d", c.HandSize)
	}
	return nil
}

// ValidateFor checks that a single 52-card deck can supply a full deal for the
// given player count: hands plus the initial face-up discard. With the default
// 13-card hand this rules out four players (13*4+1 = 53 > 52); four-player
// games must be configured with a smaller hand size.
func (c TableConfig) ValidateFor(players int) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if players < MinPlayers || players > int(c.MaxPlayers) {
		return fmt.Errorf("player count must be in range %d..=%d, got %d", MinPlayers, c.MaxPlayers, players)
	}
	if needed := players*c.HandSize + 1; needed > DeckSize {
		return fmt.Errorf("deal of %d players x %d cards + 1 discard needs %d cards, deck has %d", players, c.HandSize, needed, DeckSize)
	}
	return nil
}

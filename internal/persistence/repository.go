package persistence

import (
	"errors"
	"time"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameAlreadyExists  = errors.New("game already exists")
	ErrCardNotFound       = errors.New("card not found")
	ErrHandNotFound       = errors.New("player hand not found")
	ErrTableStateNotFound = errors.New("table state not found")
)

// GameRecord is the engine-facing summary of a game; lobby concerns like
// membership and chat live outside this repository.
type GameRecord struct {
	ID         int64
	Name       string
	MaxPlayers uint8
	Status     domain.GameStatus
	CreatedBy  int64
	CreatedAt  time.Time
}

// CardFilter narrows bulk card reads. Nil fields match everything.
type CardFilter struct {
	Location *domain.CardLocation
	OwnerID  *int64
}

func FilterLocation(location domain.CardLocation) CardFilter {
	return CardFilter{Location: &location}
}

func FilterOwner(location domain.CardLocation, ownerID int64) CardFilter {
	return CardFilter{Location: &location, OwnerID: &ownerID}
}

// Store is the operation set available inside one atomic unit. All reads and
// writes are scoped by game id; card lists come back ordered by position.
type Store interface {
	CreateGame(record GameRecord) error
	GetGame(gameID int64) (GameRecord, bool, error)
	UpdateGameStatus(gameID int64, status domain.GameStatus) error

	ReplaceCards(gameID int64, cards []domain.Card) error
	GetCard(gameID int64, cardID int64) (domain.Card, bool, error)
	UpdateCard(gameID int64, card domain.Card) error
	ListCards(gameID int64, filter CardFilter) ([]domain.Card, error)

	ReplaceHands(gameID int64, hands []domain.PlayerHand) error
	GetHand(gameID int64, playerID int64) (domain.PlayerHand, bool, error)
	ListHands(gameID int64) ([]domain.PlayerHand, error)
	UpdateHand(hand domain.PlayerHand) error

	PutTableState(state domain.TableState) error
	GetTableState(gameID int64) (domain.TableState, bool, error)
}

// Repository adds the atomic unit: every compound game operation runs its
// read-modify-write sequence inside one Atomic call, which commits only when
// fn returns nil.
type Repository interface {
	Store
	Atomic(gameID int64, fn func(Store) error) error
}

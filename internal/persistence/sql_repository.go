package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ayilmaz/rummy-table/internal/domain"
)

// sqlStore issues queries against either the pool or an open transaction.
// Placeholders are written in `?` form and rebound per driver, so the same
// statements serve both postgres and sqlite3 connections.
type sqlStore struct {
	ext sqlx.Ext
}

type sqlRepository struct {
	sqlStore
	db *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) Repository {
	return &sqlRepository{sqlStore: sqlStore{ext: db}, db: db}
}

func (r *sqlRepository) Atomic(gameID int64, fn func(Store) error) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin game %d transaction: %w", gameID, err)
	}
	if err := fn(&sqlStore{ext: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type gameRow struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	MaxPlayers uint8  `db:"max_players"`
	Status     string `db:"status"`
	CreatedBy  int64  `db:"created_by"`
	CreatedAt  sql.NullTime `db:"created_at"`
}

type cardRow struct {
	GameID   int64         `db:"game_id"`
	CardID   int64         `db:"card_id"`
	Suit     string        `db:"suit"`
	Rank     uint8         `db:"rank"`
	Location string        `db:"location"`
	OwnerID  sql.NullInt64 `db:"owner_id"`
	Position int           `db:"position"`
}

type handRow struct {
	GameID        int64  `db:"game_id"`
	PlayerID      int64  `db:"player_id"`
	TurnOrder     int    `db:"turn_order"`
	Melds         string `db:"melds"`
	HasDrawn      bool   `db:"has_drawn"`
	JokerRevealed bool   `db:"joker_revealed"`
}

type stateRow struct {
	GameID            int64         `db:"game_id"`
	CurrentTurnPlayer int64         `db:"current_turn_player"`
	WildcardRank      uint8         `db:"wildcard_rank"`
	WinnerID          sql.NullInt64 `db:"winner_id"`
	TurnNumber        int           `db:"turn_number"`
	LastAction        string        `db:"last_action"`
	CreatedAt         sql.NullTime  `db:"created_at"`
	UpdatedAt         sql.NullTime  `db:"updated_at"`
}

func (s *sqlStore) CreateGame(record GameRecord) error {
	q := s.ext.Rebind(`
INSERT INTO games (id, name, max_players, status, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?)`)
	_, err := s.ext.Exec(q,
		record.ID,
		record.Name,
		int16(record.MaxPlayers),
		string(record.Status),
		record.CreatedBy,
		record.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrGameAlreadyExists
	}
	return err
}

func (s *sqlStore) GetGame(gameID int64) (GameRecord, bool, error) {
	q := s.ext.Rebind(`
SELECT id, name, max_players, status, created_by, created_at
FROM games WHERE id = ?`)
	var row gameRow
	err := sqlx.Get(s.ext, &row, q, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return GameRecord{}, false, nil
	}
	if err != nil {
		return GameRecord{}, false, err
	}
	record := GameRecord{
		ID:         row.ID,
		Name:       row.Name,
		MaxPlayers: row.MaxPlayers,
		Status:     domain.GameStatus(row.Status),
		CreatedBy:  row.CreatedBy,
	}
	if row.CreatedAt.Valid {
		record.CreatedAt = row.CreatedAt.Time
	}
	return record, true, nil
}

func (s *sqlStore) UpdateGameStatus(gameID int64, status domain.GameStatus) error {
	q := s.ext.Rebind(`UPDATE games SET status = ? WHERE id = ?`)
	result, err := s.ext.Exec(q, string(status), gameID)
	if err != nil {
		return err
	}
	return requireRowAffected(result, ErrGameNotFound)
}

func (s *sqlStore) ReplaceCards(gameID int64, cards []domain.Card) error {
	if _, err := s.ext.Exec(s.ext.Rebind(`DELETE FROM game_cards WHERE game_id = ?`), gameID); err != nil {
		return err
	}
	insert := s.ext.Rebind(`
INSERT INTO game_cards (game_id, card_id, suit, rank, location, owner_id, position)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return err
		}
		if _, err := s.ext.Exec(insert,
			gameID,
			card.ID,
			string(card.Suit),
			uint8(card.Rank),
			string(card.Location),
			nullableID(card.OwnerID),
			card.Position,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) GetCard(gameID int64, cardID int64) (domain.Card, bool, error) {
	q := s.ext.Rebind(`
SELECT game_id, card_id, suit, rank, location, owner_id, position
FROM game_cards WHERE game_id = ? AND card_id = ?`)
	var row cardRow
	err := sqlx.Get(s.ext, &row, q, gameID, cardID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Card{}, false, nil
	}
	if err != nil {
		return domain.Card{}, false, err
	}
	card, err := row.toDomain()
	if err != nil {
		return domain.Card{}, false, err
	}
	return card, true, nil
}

func (s *sqlStore) UpdateCard(gameID int64, card domain.Card) error {
	if err := card.Validate(); err != nil {
		return err
	}
	q := s.ext.Rebind(`
UPDATE game_cards SET location = ?, owner_id = ?, position = ?
WHERE game_id = ? AND card_id = ?`)
	result, err := s.ext.Exec(q,
		string(card.Location),
		nullableID(card.OwnerID),
		card.Position,
		gameID,
		card.ID,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(result, ErrCardNotFound)
}

func (s *sqlStore) ListCards(gameID int64, filter CardFilter) ([]domain.Card, error) {
	query := `
SELECT game_id, card_id, suit, rank, location, owner_id, position
FROM game_cards WHERE game_id = ?`
	args := []any{gameID}
	if filter.Location != nil {
		query += ` AND location = ?`
		args = append(args, string(*filter.Location))
	}
	if filter.OwnerID != nil {
		query += ` AND owner_id = ?`
		args = append(args, *filter.OwnerID)
	}
	query += ` ORDER BY position ASC, card_id ASC`

	var rows []cardRow
	if err := sqlx.Select(s.ext, &rows, s.ext.Rebind(query), args...); err != nil {
		return nil, err
	}
	out := make([]domain.Card, 0, len(rows))
	for _, row := range rows {
		card, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, nil
}

func (s *sqlStore) ReplaceHands(gameID int64, hands []domain.PlayerHand) error {
	if _, err := s.ext.Exec(s.ext.Rebind(`DELETE FROM player_hands WHERE game_id = ?`), gameID); err != nil {
		return err
	}
	insert := s.ext.Rebind(`
INSERT INTO player_hands (game_id, player_id, turn_order, melds, has_drawn, joker_revealed)
VALUES (?, ?, ?, ?, ?, ?)`)
	for _, hand := range hands {
		melds, err := marshalMelds(hand.Melds)
		if err != nil {
			return err
		}
		if _, err := s.ext.Exec(insert,
			gameID,
			hand.PlayerID,
			hand.TurnOrder,
			melds,
			hand.HasDrawn,
			hand.JokerRevealed,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) GetHand(gameID int64, playerID int64) (domain.PlayerHand, bool, error) {
	q := s.ext.Rebind(`
SELECT game_id, player_id, turn_order, melds, has_drawn, joker_revealed
FROM player_hands WHERE game_id = ? AND player_id = ?`)
	var row handRow
	err := sqlx.Get(s.ext, &row, q, gameID, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PlayerHand{}, false, nil
	}
	if err != nil {
		return domain.PlayerHand{}, false, err
	}
	hand, err := row.toDomain()
	if err != nil {
		return domain.PlayerHand{}, false, err
	}
	return hand, true, nil
}

func (s *sqlStore) ListHands(gameID int64) ([]domain.PlayerHand, error) {
	q := s.ext.Rebind(`
SELECT game_id, player_id, turn_order, melds, has_drawn, joker_revealed
FROM player_hands WHERE game_id = ?
ORDER BY turn_order ASC`)
	var rows []handRow
	if err := sqlx.Select(s.ext, &rows, q, gameID); err != nil {
		return nil, err
	}
	out := make([]domain.PlayerHand, 0, len(rows))
	for _, row := range rows {
		hand, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, hand)
	}
	return out, nil
}

func (s *sqlStore) UpdateHand(hand domain.PlayerHand) error {
	melds, err := marshalMelds(hand.Melds)
	if err != nil {
		return err
	}
	q := s.ext.Rebind(`
UPDATE player_hands SET turn_order = ?, melds = ?, has_drawn = ?, joker_revealed = ?
WHERE game_id = ? AND player_id = ?`)
	result, err := s.ext.Exec(q,
		hand.TurnOrder,
		melds,
		hand.HasDrawn,
		hand.JokerRevealed,
		hand.GameID,
		hand.PlayerID,
	)
	if err != nil {
		return err
	}
	return requireRowAffected(result, ErrHandNotFound)
}

func (s *sqlStore) PutTableState(state domain.TableState) error {
	q := s.ext.Rebind(`
INSERT INTO table_state (game_id, current_turn_player, wildcard_rank, winner_id, turn_number, last_action, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (game_id) DO UPDATE SET
  current_turn_player = EXCLUDED.current_turn_player,
  wildcard_rank = EXCLUDED.wildcard_rank,
  winner_id = EXCLUDED.winner_id,
  turn_number = EXCLUDED.turn_number,
  last_action = EXCLUDED.last_action,
  created_at = EXCLUDED.created_at,
  updated_at = EXCLUDED.updated_at`)
	_, err := s.ext.Exec(q,
		state.GameID,
		state.CurrentTurnPlayer,
		uint8(state.HiddenWildcardRank),
		nullableID(state.WinnerID),
		state.TurnNumber,
		state.LastAction,
		state.CreatedAt,
		state.UpdatedAt,
	)
	return err
}

func (s *sqlStore) GetTableState(gameID int64) (domain.TableState, bool, error) {
	q := s.ext.Rebind(`
SELECT game_id, current_turn_player, wildcard_rank, winner_id, turn_number, last_action, created_at, updated_at
FROM table_state WHERE game_id = ?`)
	var row stateRow
	err := sqlx.Get(s.ext, &row, q, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TableState{}, false, nil
	}
	if err != nil {
		return domain.TableState{}, false, err
	}
	return row.toDomain()
}

func (r cardRow) toDomain() (domain.Card, error) {
	rank, err := domain.NewRank(r.Rank)
	if err != nil {
		return domain.Card{}, fmt.Errorf("card %d: %w", r.CardID, err)
	}
	card := domain.Card{
		ID:       r.CardID,
		Suit:     domain.Suit(r.Suit),
		Rank:     rank,
		Location: domain.CardLocation(r.Location),
		Position: r.Position,
	}
	if r.OwnerID.Valid {
		owner := r.OwnerID.Int64
		card.OwnerID = &owner
	}
	if err := card.Validate(); err != nil {
		return domain.Card{}, err
	}
	return card, nil
}

func (r handRow) toDomain() (domain.PlayerHand, error) {
	var melds []domain.Meld
	if r.Melds != "" {
		if err := json.Unmarshal([]byte(r.Melds), &melds); err != nil {
			return domain.PlayerHand{}, fmt.Errorf("unmarshal melds for player %d: %w", r.PlayerID, err)
		}
	}
	return domain.PlayerHand{
		GameID:        r.GameID,
		PlayerID:      r.PlayerID,
		TurnOrder:     r.TurnOrder,
		Melds:         melds,
		HasDrawn:      r.HasDrawn,
		JokerRevealed: r.JokerRevealed,
	}, nil
}

func (r stateRow) toDomain() (domain.TableState, bool, error) {
	rank, err := domain.NewRank(r.WildcardRank)
	if err != nil {
		return domain.TableState{}, false, fmt.Errorf("table state for game %d: %w", r.GameID, err)
	}
	state := domain.TableState{
		GameID:             r.GameID,
		CurrentTurnPlayer:  r.CurrentTurnPlayer,
		HiddenWildcardRank: rank,
		TurnNumber:         r.TurnNumber,
		LastAction:         r.LastAction,
	}
	if r.WinnerID.Valid {
		winner := r.WinnerID.Int64
		state.WinnerID = &winner
	}
	if r.CreatedAt.Valid {
		state.CreatedAt = r.CreatedAt.Time
	}
	if r.UpdatedAt.Valid {
		state.UpdatedAt = r.UpdatedAt.Time
	}
	return state, true, nil
}

func marshalMelds(melds []domain.Meld) (string, error) {
	if melds == nil {
		melds = []domain.Meld{}
	}
	raw, err := json.Marshal(melds)
	if err != nil {
		return "", fmt.Errorf("marshal melds: %w", err)
	}
	return string(raw), nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func requireRowAffected(result sql.Result, missing error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return missing
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var stateErr interface{ SQLState() string }
	if errors.As(err, &stateErr) && stateErr.SQLState() == "23505" {
		return true
	}
	// sqlite3 and drivers that only surface the constraint in error text.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}

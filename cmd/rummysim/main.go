// rummysim plays a two-player game against the in-memory repository with
// naive random strategies. It exists to exercise the full engine loop from
// the command line and to eyeball event traffic.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/ayilmaz/rummy-table/internal/domain"
	"github.com/ayilmaz/rummy-table/internal/engine"
	"github.com/ayilmaz/rummy-table/internal/notify"
	"github.com/ayilmaz/rummy-table/internal/persistence"
	"github.com/ayilmaz/rummy-table/internal/rules"
)

const gameID int64 = 1

func main() {
	seed := flag.Int64("seed", time.Now().UnixNano(), "shuffle and strategy seed")
	maxTurns := flag.Int("max-turns", 200, "give up after this many turns")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger, *seed, *maxTurns); err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, seed int64, maxTurns int) error {
	repo := persistence.NewInMemoryRepository()
	recorder := notify.NewRecorder()
	eng := engine.New(repo, recorder, rules.NewSeededShuffler(seed), domain.DefaultTableConfig())
	rng := rand.New(rand.NewSource(seed))

	if err := repo.CreateGame(persistence.GameRecord{
		ID:         gameID,
		Name:       "simulated table",
		MaxPlayers: domain.DefaultMaxPlayers,
		Status:     domain.GameStatusWaiting,
		CreatedBy:  1,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return err
	}

	players := []int64{1, 2}
	if err := eng.InitializeGame(gameID, players); err != nil {
		return err
	}
	logger.Info("game started", "seed", seed, "players", len(players))

	for turn := 0; turn < maxTurns; turn++ {
		snap, err := eng.GameState(gameID)
		if err != nil {
			return err
		}
		if snap.Status == domain.GameStatusFinished {
			break
		}
		if err := playTurn(eng, rng, snap.CurrentTurnPlayer); err != nil {
			return err
		}
	}

	snap, err := eng.GameState(gameID)
	if err != nil {
		return err
	}
	logger.Info("simulation complete",
		"turns", snap.TurnNumber,
		"status", snap.Status,
		"events", len(recorder.Events()),
	)
	if snap.WinnerID != nil {
		logger.Info("winner", "player_id", *snap.WinnerID)
	}
	for _, player := range snap.Players {
		logger.Info("player summary",
			"player_id", player.PlayerID,
			"cards_in_hand", player.CardCount,
			"melds", len(player.Melds),
		)
	}
	return nil
}

// playTurn runs one naive turn: draw (preferring the discard half the time),
// try to lay any valid 3-card combination, then discard at random. A player
// who empties their hand declares the win.
func playTurn(eng *engine.Engine, rng *rand.Rand, playerID int64) error {
	drew := false
	if rng.Intn(2) == 0 {
		if _, err := eng.DrawFromDiscard(gameID, playerID); err == nil {
			drew = true
		}
	}
	if !drew {
		if _, err := eng.DrawFromDeck(gameID, playerID); err != nil {
			return fmt.Errorf("player %d draw: %w", playerID, err)
		}
	}

	for {
		hand, err := eng.PlayerHandCards(gameID, playerID)
		if err != nil {
			return err
		}
		if !layAnyMeld(eng, playerID, hand) {
			break
		}
	}

	hand, err := eng.PlayerHandCards(gameID, playerID)
	if err != nil {
		return err
	}
	if len(hand) == 0 {
		return eng.DeclareWin(gameID, playerID)
	}
	if len(hand) == 1 {
		// Discarding the last card empties the hand; claim the win next
		// time around.
		if err := eng.DiscardCard(gameID, playerID, hand[0].ID); err != nil {
			return err
		}
		return eng.DeclareWin(gameID, playerID)
	}
	discard := hand[rng.Intn(len(hand))]
	if err := eng.DiscardCard(gameID, playerID, discard.ID); err != nil {
		return fmt.Errorf("player %d discard: %w", playerID, err)
	}
	return nil
}

// layAnyMeld brute-forces 3-card combinations until the engine accepts one.
// Validation happens inside LayMeld, so a hidden wildcard the player has not
// seen still works in their favor.
func layAnyMeld(eng *engine.Engine, playerID int64, hand []domain.Card) bool {
	for i := 0; i < len(hand); i++ {
		for j := i + 1; j < len(hand); j++ {
			for k := j + 1; k < len(hand); k++ {
				candidate := []int64{hand[i].ID, hand[j].ID, hand[k].ID}
				if _, err := eng.LayMeld(gameID, playerID, candidate); err == nil {
					return true
				}
			}
		}
	}
	return false
}

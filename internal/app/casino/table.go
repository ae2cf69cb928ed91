package casino

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/codequest-app/codequest/internal/domain"
	"github.com/codequest-app/codequest/internal/infra/metrics"
	"github.com/codequest-app/codequest/internal/platform/logger"
)

// Draw is the random input of one round. Only the field of the game being
// played is read.
type Draw struct {
	Won     bool    `json:"won,omitempty"`     // coin flip
	Angle   float64 `json:"angle,omitempty"`   // wheel, degrees
	Correct bool    `json:"correct,omitempty"` // horse race
}

// Award scores a round of game.
func Award(game domain.Game, stake int64, d Draw) (int64, error) {
	switch game {
	case domain.GameCoinFlip:
		return CoinFlip(stake, d.Won), nil
	case domain.GameWheel:
		return Wheel(stake, d.Angle), nil
	case domain.GameHorseRace:
		return HorseRace(stake, d.Correct), nil
	}
	return 0, fmt.Errorf("%w: %q", domain.ErrUnknownGame, game)
}

// Table settles rounds against a user's points balance.
type Table struct {
	profiles domain.ProfileStore
	locker   domain.Locker
	log      *logger.Logger
}

// NewTable creates a table.
func NewTable(profiles domain.ProfileStore, locker domain.Locker, log *logger.Logger) *Table {
	return &Table{profiles: profiles, locker: locker, log: log.With("component", "casino")}
}

// Settle plays one round: the stake must be positive and covered by the
// user's points, and award − stake is applied to the balance.
func (t *Table) Settle(ctx context.Context, userID string, game domain.Game, stake int64, d Draw) (domain.CasinoOutcome, error) {
	award, err := Award(game, stake, d)
	if err != nil {
		return domain.CasinoOutcome{}, err
	}
	if stake <= 0 {
		return domain.CasinoOutcome{}, fmt.Errorf("%w: %d", domain.ErrInvalidStake, stake)
	}

	unlock, err := t.locker.Lock(ctx, userID)
	if err != nil {
		return domain.CasinoOutcome{}, err
	}
	defer unlock()

	attrs, err := t.profiles.Attributes(ctx, userID)
	if err != nil {
		return domain.CasinoOutcome{}, err
	}
	if stake > attrs.Points {
		return domain.CasinoOutcome{}, fmt.Errorf("%w: stake %d, have %d", domain.ErrInvalidStake, stake, attrs.Points)
	}

	out := domain.CasinoOutcome{
		Game:       game,
		Stake:      stake,
		Awarded:    award,
		Balance:    attrs.Points,
		Multiplier: float64(award) / float64(stake),
	}

	if net := out.Net(); net != 0 {
		ref := fmt.Sprintf("casino:%s:%s", game, uuid.NewString())
		out.Balance, err = t.profiles.AddPoints(ctx, userID, net, ref)
		if err != nil {
			return domain.CasinoOutcome{}, fmt.Errorf("settle %s: %w", game, err)
		}
	}

	metrics.CasinoSettlements.WithLabelValues(string(game)).Inc()
	metrics.CasinoNetPoints.WithLabelValues(string(game)).Add(float64(out.Net()))
	t.log.Debug("casino round settled", "user_id", userID, "game", game, "stake", stake, "awarded", award, "balance", out.Balance)
	return out, nil
}

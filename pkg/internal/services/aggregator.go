package services

import (
	"context"
	"errors"
	"time"

	"github.com/pollcast/pollcast/pkg/internal/models"
	"github.com/pollcast/pollcast/pkg/internal/queue"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Aggregator folds admitted votes into their poll's total_votes counter.
// It is the only writer of total_votes and of the open→closed transition,
// and it must stay idempotent: the dispatcher delivers at least once.
type Aggregator struct {
	db    *gorm.DB
	polls *PollService

	// Now is swappable so expiry boundaries can be pinned in tests.
	Now func() time.Time
}

func NewAggregator(db *gorm.DB, polls *PollService) *Aggregator {
	return &Aggregator{db: db, polls: polls, Now: time.Now}
}

// Process implements queue.Processor. Expiry is evaluated with the
// aggregator's own clock at processing time, superseding both the stored
// status flag and whatever the admission check saw earlier: a vote that
// slipped through the admission window right before the deadline is still
// invalidated here.
func (a *Aggregator) Process(ctx context.Context, event queue.VoteCreated) error {
	var vote models.Vote
	if err := a.db.WithContext(ctx).Where("id = ?", event.VoteID).First(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Already invalidated by an earlier delivery of the same event.
			return nil
		}
		return err
	}

	var poll models.Poll
	if err := a.db.WithContext(ctx).Where("id = ?", vote.PollID).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn().Uint("vote", vote.ID).Uint("poll", vote.PollID).
				Msg("Processing a vote for a missing poll, skipping...")
			return nil
		}
		return err
	}

	now := a.Now()
	if !now.Before(poll.ExpiredAt) {
		if err := a.invalidateLateVote(ctx, poll, vote); err != nil {
			return err
		}
		a.polls.FlushPollCache(poll.ID)
		log.Info().Uint("poll", poll.ID).Uint("vote", vote.ID).
			Msg("Poll has ended, late vote was invalidated.")
		return nil
	}

	counted, err := a.countVote(ctx, poll, vote, now)
	if err != nil {
		return err
	}
	if counted {
		a.polls.FlushPollCache(poll.ID)
	}
	return nil
}

func (a *Aggregator) invalidateLateVote(ctx context.Context, poll models.Poll, vote models.Vote) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Poll{}).
			Where("id = ?", poll.ID).
			Update("status", models.PollStatusClosed).Error; err != nil {
			return err
		}
		// The late vote must not survive in the ledger, otherwise a recount
		// would disagree with the frozen total.
		return tx.Delete(&models.Vote{}, vote.ID).Error
	})
}

func (a *Aggregator) countVote(ctx context.Context, poll models.Poll, vote models.Vote, now time.Time) (bool, error) {
	var counted bool
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.Vote{}).
			Where("id = ? AND counted_at IS NULL", vote.ID).
			Update("counted_at", now)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			// Redelivery of a vote that was already counted.
			return nil
		}
		counted = true
		return tx.Model(&models.Poll{}).
			Where("id = ?", poll.ID).
			Update("total_votes", gorm.Expr("total_votes + ?", 1)).Error
	})
	return counted, err
}

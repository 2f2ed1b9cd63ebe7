package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/pollcast/pollcast/pkg/internal/models"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PollService struct {
	db      *gorm.DB
	marshal *marshaler.Marshaler
}

func NewPollService(db *gorm.DB, cacheStore store.StoreInterface) *PollService {
	srv := &PollService{db: db}
	if cacheStore != nil {
		srv.marshal = marshaler.New(cache.New[any](cacheStore))
	}
	return srv
}

func (s *PollService) NewPoll(question string, options map[string]string, expiredAt time.Time, creatorID uint) (models.Poll, error) {
	poll := models.Poll{
		Question:  question,
		Options:   datatypes.NewJSONType(options),
		ExpiredAt: expiredAt,
		CreatorID: creatorID,
		Status:    models.PollStatusOpen,
	}

	if len(question) == 0 || creatorID == 0 {
		return poll, ErrMissingFields
	}
	if len(options) < 2 {
		return poll, ErrTooFewOptions
	}

	if err := s.db.Create(&poll).Error; err != nil {
		return poll, err
	}
	return poll, nil
}

func (s *PollService) GetPoll(id uint) (models.Poll, error) {
	var poll models.Poll
	if err := s.db.Where("id = ?", id).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return poll, ErrPollNotFound
		}
		return poll, err
	}
	return poll, nil
}

// GetPollWithResults returns the poll plus the per-option breakdown scanned
// from the votes table. The breakdown is the source of truth for the
// distribution; total_votes is maintained by the aggregator and may trail it
// for a moment while deliveries are in flight.
func (s *PollService) GetPollWithResults(id uint) (models.Poll, error) {
	poll, err := s.GetPoll(id)
	if err != nil {
		return poll, err
	}

	counts, err := s.countVotes(id)
	if err != nil {
		return poll, err
	}
	poll.VoteCounts = counts

	return poll, nil
}

func (s *PollService) countVotes(pollID uint) (map[string]int, error) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("poll-results#%d", pollID)

	if s.marshal != nil {
		if cached, err := s.marshal.Get(ctx, cacheKey, new(map[string]int)); err == nil {
			return *cached.(*map[string]int), nil
		}
	}

	var votes []models.Vote
	if err := s.db.Where("poll_id = ?", pollID).Find(&votes).Error; err != nil {
		return nil, err
	}

	counts := lo.CountValuesBy(votes, func(item models.Vote) string {
		return item.Option
	})

	if s.marshal != nil {
		_ = s.marshal.Set(
			ctx,
			cacheKey,
			counts,
			store.WithExpiration(5*time.Second),
			store.WithTags([]string{fmt.Sprintf("poll#%d", pollID)}),
		)
	}

	return counts, nil
}

// FlushPollCache drops cached results after the aggregator or a deletion
// changed the poll's state.
func (s *PollService) FlushPollCache(pollID uint) {
	if s.marshal == nil {
		return
	}
	_ = s.marshal.Invalidate(
		context.Background(),
		store.WithInvalidateTags([]string{fmt.Sprintf("poll#%d", pollID)}),
	)
}

func (s *PollService) ListPolls(ownerID uint, expiresBefore time.Time) ([]models.Poll, error) {
	var polls []models.Poll
	err := s.db.
		Where("creator_id = ?", ownerID).
		Where("expired_at <= ?", expiresBefore).
		Find(&polls).Error

	return polls, err
}

// DeletePoll removes a poll after checking the requester is its creator.
// Votes referencing the poll become orphans; the aggregator tolerates them.
func (s *PollService) DeletePoll(id uint, requesterID uint) error {
	poll, err := s.GetPoll(id)
	if err != nil {
		return err
	}
	if poll.CreatorID != requesterID {
		return ErrNotCreator
	}

	if err := s.db.Delete(&poll).Error; err != nil {
		return err
	}
	s.FlushPollCache(id)

	return nil
}

package services

import (
	"errors"
	"time"

	"github.com/pollcast/pollcast/pkg/internal/models"
	"github.com/pollcast/pollcast/pkg/internal/queue"
	"gorm.io/gorm"
)

// VotePublisher hands admitted votes to the aggregation pipeline.
type VotePublisher interface {
	Publish(event queue.VoteCreated)
}

type VoteService struct {
	db        *gorm.DB
	publisher VotePublisher
}

func NewVoteService(db *gorm.DB, publisher VotePublisher) *VoteService {
	return &VoteService{db: db, publisher: publisher}
}

// Cast admits one vote for (poll, voter). Checks run in order and the first
// failure wins. The admission itself does not touch total_votes; the counter
// is owned by the aggregator, which picks the vote up from the queue.
func (s *VoteService) Cast(pollID uint, voterID uint, option string) (models.Vote, error) {
	var vote models.Vote
	if voterID == 0 || len(option) == 0 {
		return vote, ErrMissingFields
	}

	var voter models.User
	if err := s.db.Where("id = ?", voterID).First(&voter).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return vote, ErrUserNotFound
		}
		return vote, err
	}

	var poll models.Poll
	if err := s.db.Where("id = ?", pollID).First(&poll).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return vote, ErrPollNotFound
		}
		return vote, err
	}

	if !poll.IsOpen(time.Now()) {
		return vote, ErrPollClosed
	}

	var count int64
	if err := s.db.Model(&models.Vote{}).
		Where("poll_id = ? AND voter_id = ?", pollID, voterID).
		Count(&count).Error; err != nil {
		return vote, err
	}
	if count > 0 {
		return vote, ErrAlreadyVoted
	}

	// An unknown option key would slip into the ledger uncountable, so it is
	// rejected even though nothing downstream would crash on it.
	if _, ok := poll.Options.Data()[option]; !ok {
		return vote, ErrInvalidOption
	}

	vote = models.Vote{
		PollID:  pollID,
		VoterID: voterID,
		Option:  option,
	}

	// The composite unique index is what actually guards against a
	// concurrent twin submission; the count above only gives the caller a
	// clean conflict without burning a write.
	if err := s.db.Create(&vote).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return vote, ErrAlreadyVoted
		}
		return vote, err
	}

	if s.publisher != nil {
		s.publisher.Publish(queue.VoteCreated{
			VoteID:  vote.ID,
			PollID:  vote.PollID,
			VoterID: vote.VoterID,
			Option:  vote.Option,
			CastAt:  vote.CreatedAt,
		})
	}

	return vote, nil
}

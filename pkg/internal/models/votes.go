package models

import "time"

type Vote struct {
	BaseModel

	PollID  uint   `json:"poll_id" gorm:"uniqueIndex:idx_votes_poll_voter"`
	VoterID uint   `json:"voter_id" gorm:"uniqueIndex:idx_votes_poll_voter"`
	Option  string `json:"option_selected"`

	// CountedAt marks the vote as folded into the poll's total, so that a
	// redelivered aggregation event cannot double-count it.
	CountedAt *time.Time `json:"counted_at,omitempty"`
}

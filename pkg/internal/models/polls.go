package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PollStatusOpen   = "open"
	PollStatusClosed = "closed"
)

type Poll struct {
	BaseModel

	Question   string                                `json:"question"`
	Options    datatypes.JSONType[map[string]string] `json:"options"`
	ExpiredAt  time.Time                             `json:"expiration_timestamp"`
	CreatorID  uint                                  `json:"creator_id"`
	TotalVotes int64                                 `json:"total_votes"`
	Status     string                                `json:"status"`

	// VoteCounts is recomputed from the votes table on read, never stored.
	VoteCounts map[string]int `json:"vote_counts,omitempty" gorm:"-"`
}

// IsOpen reports whether the poll accepts votes at the given instant. The
// stored status flag can be stale because closing is observed lazily, so the
// deadline is always checked against the clock as well.
func (p Poll) IsOpen(now time.Time) bool {
	return p.Status == PollStatusOpen && now.Before(p.ExpiredAt)
}

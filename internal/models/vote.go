package models

import "time"

// VoteValue is an opinion on an observation's accuracy.
type VoteValue string

const (
	VoteUp   VoteValue = "UPVOTE"
	VoteDown VoteValue = "DOWNVOTE"
)

// Weight is the karma contribution of a vote.
func (v VoteValue) Weight() int {
	switch v {
	case VoteUp:
		return 1
	case VoteDown:
		return -1
	}
	return 0
}

// Valid reports whether v is a known vote value.
func (v VoteValue) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// ObservationVote is the single vote a user cast on an observation.
type ObservationVote struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ObservationID uint      `gorm:"not null;uniqueIndex:idx_observation_votes_pair" json:"observation_id"`
	UserID        uint      `gorm:"not null;uniqueIndex:idx_observation_votes_pair;index" json:"user_id"`
	Vote          VoteValue `gorm:"size:16;not null" json:"vote"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// VoteCount is an aggregate row of votes grouped by value.
type VoteCount struct {
	Vote  VoteValue
	Count int64
}

// KarmaOf folds vote counts into a karma score.
func KarmaOf(counts []VoteCount) int {
	total := 0
	for _, c := range counts {
		total += c.Vote.Weight() * int(c.Count)
	}
	return total
}

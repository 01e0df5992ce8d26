package domain

import (
	"time"
)

type QuestStatus string

const (
	QuestStatusOpen     QuestStatus = "open"
	QuestStatusClosed   QuestStatus = "closed"
	QuestStatusFinished QuestStatus = "finished"
)

func (s QuestStatus) Valid() bool {
	switch s {
	case QuestStatusOpen, QuestStatusClosed, QuestStatusFinished:
		return true
	}
	return false
}

// Default prize split.
const (
	DefaultReward1 = 50
	DefaultReward2 = 30
	DefaultReward3 = 20
)

// Quest is a paid photo challenge.
type Quest struct {
	ID          int64       `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	EntryFee    int64       `db:"entry_fee" json:"entry_fee"`
	Reward1     int64       `db:"reward_1" json:"reward_1"`
	Reward2     int64       `db:"reward_2" json:"reward_2"`
	Reward3     int64       `db:"reward_3" json:"reward_3"`
	TotalPool   int64       `db:"total_pool" json:"total_pool"`
	Status      QuestStatus `db:"status" json:"status"`
	StartDate   *time.Time  `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time  `db:"end_date" json:"end_date,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

func (q *Quest) IsOpen() bool {
	return q.Status == QuestStatusOpen
}

// QuestParticipant records that a user paid to join a quest.
type QuestParticipant struct {
	QuestID  int64     `db:"quest_id" json:"quest_id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// JoinedQuest is a quest listed for one of its participants.
type JoinedQuest struct {
	Quest
	JoinedAt time.Time `json:"joined_at"`
}

// NewQuest is the admin input for creating a quest.
type NewQuest struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	EntryFee    int64       `json:"entry_fee"`
	Reward1     *int64      `json:"reward_1"`
	Reward2     *int64      `json:"reward_2"`
	Reward3     *int64      `json:"reward_3"`
	Status      QuestStatus `json:"status"`
	StartDate   *time.Time  `json:"start_date"`
	EndDate     *time.Time  `json:"end_date"`
}

// Normalize fills defaults and validates.
func (n *NewQuest) Normalize() error {
	if n.Title == "" {
		return Validation("title is required")
	}
	if n.EntryFee < 0 {
		return Validation("entry_fee must not be negative")
	}
	if n.Status == "" {
		n.Status = QuestStatusOpen
	}
	if !n.Status.Valid() {
		return Validation("unknown quest status %q", n.Status)
	}
	for _, r := range []struct {
		v   **int64
		def int64
	}{{&n.Reward1, DefaultReward1}, {&n.Reward2, DefaultReward2}, {&n.Reward3, DefaultReward3}} {
		if *r.v == nil {
			d := r.def
			*r.v = &d
		} else if **r.v < 0 {
			return Validation("rewards must not be negative")
		}
	}
	return checkDates(n.StartDate, n.EndDate)
}

// QuestUpdate is a partial update. Only non-nil fields are written; anything
// else (id, total_pool, timestamps) cannot be set through it.
type QuestUpdate struct {
	Title       *string      `json:"title"`
	Description *string      `json:"description"`
	EntryFee    *int64       `json:"entry_fee"`
	Reward1     *int64       `json:"reward_1"`
	Reward2     *int64       `json:"reward_2"`
	Reward3     *int64       `json:"reward_3"`
	Status      *QuestStatus `json:"status"`
	StartDate   *time.Time   `json:"start_date"`
	EndDate     *time.Time   `json:"end_date"`
}

func (u QuestUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.EntryFee == nil &&
		u.Reward1 == nil && u.Reward2 == nil && u.Reward3 == nil &&
		u.Status == nil && u.StartDate == nil && u.EndDate == nil
}

func (u QuestUpdate) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return Validation("title must not be empty")
	}
	if u.EntryFee != nil && *u.EntryFee < 0 {
		return Validation("entry_fee must not be negative")
	}
	for _, r := range []*int64{u.Reward1, u.Reward2, u.Reward3} {
		if r != nil && *r < 0 {
			return Validation("rewards must not be negative")
		}
	}
	if u.Status != nil && !u.Status.Valid() {
		return Validation("unknown quest status %q", *u.Status)
	}
	return checkDates(u.StartDate, u.EndDate)
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return Validation("end_date must not be before start_date")
	}
	return nil
}

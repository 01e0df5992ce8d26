package domain

import "time"

type Photo struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	QuestID     *int64    `db:"quest_id" json:"quest_id,omitempty"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	FileURL     string    `db:"file_url" json:"file_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PhotoView is a photo with its author and like count.
type PhotoView struct {
	Photo
	DisplayName string `json:"display_name"`
	Likes       int64  `json:"likes"`
}

type Comment struct {
	ID          int64     `db:"id" json:"id"`
	PhotoID     int64     `db:"photo_id" json:"photo_id"`
	UserID      int64     `db:"user_id" json:"user_id"`
	DisplayName string    `json:"display_name"`
	Comment     string    `db:"comment" json:"comment"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

const MaxCommentLength = 1000

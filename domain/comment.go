package domain

import (
	"context"
	"time"
)

// Comment belongs to exactly one post and one author and goes away with either of them.
type Comment struct {
	ID       int    `json:"id"`
	Text     string `json:"text" gorm:"type:text;not null"`
	PostID   int    `json:"post_id" gorm:"not null;index"`
	Post     Post   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AuthorID int    `json:"-" gorm:"not null;index"`
	Author   User   `json:"author" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	Created time.Time `json:"created" gorm:"autoCreateTime"`
}

// CommentService is a set of methods to manipulate and work with the Comment model.
type CommentService interface {
	ByPost(ctx context.Context, postID int) ([]Comment, error)
	Create(ctx context.Context, comment *Comment) error
}

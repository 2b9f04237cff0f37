package domain

import (
	"context"
	"time"
)

// Follow represents a self-referential many-to-many relationship between two users.
// UserID is the follower, AuthorID is the user being followed. The pair is unique,
// so a user can follow an author only once.
type Follow struct {
	ID       int  `json:"id"`
	UserID   int  `json:"-" gorm:"not null;uniqueIndex:idx_follows_pair"`
	User     User `json:"user" gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	AuthorID int  `json:"-" gorm:"not null;uniqueIndex:idx_follows_pair;index"`
	Author   User `json:"author" gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`

	CreatedAt time.Time `json:"created_at"`
}

// FollowService is a set of methods to manipulate and work with the Follow model.
type FollowService interface {
	Exists(ctx context.Context, userID, authorID int) (bool, error)
	Create(ctx context.Context, follow *Follow) error
	Delete(ctx context.Context, follow *Follow) error
}

package domain

import (
	"context"
	"time"
)

// User represents an account that can publish posts, comment and follow other users.
// Password and Remember are only held in memory, the database stores their hashes.
// The counts and the AuthFollow flag are not stored, they're computed for profile views.
type User struct {
	ID        int    `json:"id"`
	Username  string `json:"username" gorm:"size:150;not null;uniqueIndex"`
	FirstName string `json:"first_name" gorm:"size:150"`
	LastName  string `json:"last_name" gorm:"size:150"`
	Email     string `json:"-" gorm:"size:254"`

	Password     string `json:"-" gorm:"-"`
	PasswordHash string `json:"-" gorm:"not null"`
	Remember     string `json:"-" gorm:"-"`
	RememberHash string `json:"-" gorm:"not null;uniqueIndex"`

	PostCount      int  `json:"post_count" gorm:"-"`
	FollowerCount  int  `json:"followers_count" gorm:"-"`
	FollowingCount int  `json:"following_count" gorm:"-"`
	AuthFollow     bool `json:"following" gorm:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

// UserService is a set of methods to manipulate and work with the User model.
type UserService interface {
	ByID(ctx context.Context, id int) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	ByRemember(ctx context.Context, token string) (*User, error)
	Authenticate(ctx context.Context, username, password string) (*User, error)
	MakeRememberToken() (string, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id int) error
	CountPosts(ctx context.Context, id int) (int, error)
	CountFollowers(ctx context.Context, id int) (int, error)
	CountFollowing(ctx context.Context, id int) (int, error)
}

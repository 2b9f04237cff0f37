package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Post is a user-authored text entry. The author is required, the group is optional.
// Deleting the author deletes the post, deleting the group only unsets GroupID.
// PubDate is assigned once on creation and never touched by updates.
type Post struct {
	ID       int    `json:"id"`
	Text     string `json:"text" gorm:"type:text;not null"`
	AuthorID int    `json:"-" gorm:"not null;index"`
	Author   User   `json:"author" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	GroupID  *int   `json:"-" gorm:"index"`
	Group    *Group `json:"group" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	// Image is the path of the image relative to the media directory.
	Image     string `json:"image,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty" gorm:"-"`

	PubDate time.Time `json:"pub_date" gorm:"autoCreateTime;index"`
}

// AfterFind derives the thumbnail path of a loaded post.
func (p *Post) AfterFind(tx *gorm.DB) error {
	p.Thumbnail = ThumbnailPath(p.Image)
	return nil
}

// PostFilter narrows down the posts of a feed. Nil fields are ignored.
// FollowerID restricts the feed to authors that the given user follows.
type PostFilter struct {
	GroupID    *int
	AuthorID   *int
	FollowerID *int
}

// PostService is a set of methods to manipulate and work with the Post model.
type PostService interface {
	ByID(ctx context.Context, id int) (*Post, error)
	Page(ctx context.Context, filter PostFilter, number int) (*Page, error)
	Create(ctx context.Context, post *Post) error
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id int) error
}

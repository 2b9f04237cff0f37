package crud

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"yatube/domain"
	"yatube/errs"
)

// CommentService manages Comments.
// It implements the domain.CommentService interface.
type CommentService struct {
	commentValidator
}

// commentValidator runs validations on incoming Comment data.
// On success, it passes the data on to commentGorm.
type commentValidator struct {
	commentGorm
}

// commentGorm runs CRUD operations on the database using incoming Comment data.
type commentGorm struct {
	db *gorm.DB
}

// NewCommentService returns an instance of CommentService.
func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{
		commentValidator{
			commentGorm{
				db: db,
			},
		},
	}
}

// Ensure the CommentService struct properly implements the domain.CommentService interface.
var _ domain.CommentService = &CommentService{}

// Create runs validations needed for creating new Comment database records.
func (cv *commentValidator) Create(ctx context.Context, comment *domain.Comment) error {
	err := runCommentValFns(comment,
		cv.authorIdValid,
		cv.textRequired,
		cv.postExists(ctx))
	if err != nil {
		return err
	}
	return cv.commentGorm.Create(ctx, comment)
}

func runCommentValFns(comment *domain.Comment, fns ...commentValFn) error {
	for _, fn := range fns {
		if err := fn(comment); err != nil {
			return err
		}
	}
	return nil
}

type commentValFn func(comment *domain.Comment) error

func (cv *commentValidator) authorIdValid(comment *domain.Comment) error {
	if comment.AuthorID <= 0 {
		return errs.AuthorIdInvalid
	}
	return nil
}

func (cv *commentValidator) textRequired(comment *domain.Comment) error {
	if strings.TrimSpace(comment.Text) == "" {
		return errs.Errorf(errs.EINVALID, "Comment text must not be empty.")
	}
	return nil
}

// postExists makes sure that the commented post actually exists.
func (cv *commentValidator) postExists(ctx context.Context) commentValFn {
	return func(comment *domain.Comment) error {
		return first(cv.db.WithContext(ctx).Where("id = ?", comment.PostID), &domain.Post{},
			"The post does not exist.")
	}
}

// ByPost returns the comments of a post in the order they were written.
func (cg *commentGorm) ByPost(ctx context.Context, postID int) ([]domain.Comment, error) {
	comments := []domain.Comment{}
	err := cg.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Preload("Author").
		Order("created asc").
		Order("id asc").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// Create stores the data from the Comment object in a new database record.
func (cg *commentGorm) Create(ctx context.Context, comment *domain.Comment) error {
	if err := cg.db.WithContext(ctx).Omit("Post", "Author").Create(comment).Error; err != nil {
		return err
	}
	return cg.db.WithContext(ctx).Preload("Author").First(comment, comment.ID).Error
}

package crud

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"yatube/domain"
	"yatube/errs"
)

// FollowService manages Follows.
// It implements the domain.FollowService interface.
type FollowService struct {
	followValidator
}

// followValidator runs validations on incoming Follow data.
// On success, it passes the data on to followGorm.
// Otherwise, it returns the error of the validation that has failed.
type followValidator struct {
	followGorm
}

// followGorm runs CRUD operations on the database using incoming Follow data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type followGorm struct {
	db *gorm.DB
}

// NewFollowService returns an instance of FollowService.
func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{
		followValidator{
			followGorm{
				db: db,
			},
		},
	}
}

// Ensure the FollowService struct properly implements the domain.FollowService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.FollowService = &FollowService{}

// Create makes the user follow the author. Following an author twice leaves a single edge.
func (fv *followValidator) Create(ctx context.Context, follow *domain.Follow) error {
	err := runFollowValFns(follow,
		fv.followerIdValid,
		fv.followedIsNotFollower,
		fv.followedUserExists(ctx))
	if err != nil {
		return err
	}
	return fv.followGorm.Create(ctx, follow)
}

// Delete removes the edge between the user and the author. A missing edge is not an error.
func (fv *followValidator) Delete(ctx context.Context, follow *domain.Follow) error {
	err := runFollowValFns(follow, fv.followerIdValid)
	if err != nil {
		return err
	}
	return fv.followGorm.Delete(ctx, follow)
}

// runFollowValFns runs any number of functions of type followValFn on the passed in Follow object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runFollowValFns(follow *domain.Follow, fns ...followValFn) error {
	for _, fn := range fns {
		if err := fn(follow); err != nil {
			return err
		}
	}
	return nil
}

// A followValFn is any function that takes in a pointer to a domain.Follow object and returns an error.
type followValFn func(follow *domain.Follow) error

func (fv *followValidator) followerIdValid(follow *domain.Follow) error {
	if follow.UserID <= 0 {
		return errs.IdInvalid
	}
	return nil
}

// followedUserExists makes sure that the author to be followed actually exists.
func (fv *followValidator) followedUserExists(ctx context.Context) followValFn {
	return func(follow *domain.Follow) error {
		return first(fv.db.WithContext(ctx).Where("id = ?", follow.AuthorID), &domain.User{},
			"The user to follow does not exist.")
	}
}

// followedIsNotFollower makes sure that users can't follow themselves.
func (fv *followValidator) followedIsNotFollower(follow *domain.Follow) error {
	if follow.UserID == follow.AuthorID {
		return errs.Errorf(errs.EINVALID, "You can't follow yourself.")
	}
	return nil
}

// Exists reports whether the user follows the author.
func (fg *followGorm) Exists(ctx context.Context, userID, authorID int) (bool, error) {
	var count int64
	err := fg.db.WithContext(ctx).
		Model(&domain.Follow{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create gets or creates the edge.
func (fg *followGorm) Create(ctx context.Context, follow *domain.Follow) error {
	err := fg.byPair(ctx, follow)
	if errs.ErrorCode(err) != errs.ENOTFOUND {
		return err
	}
	return fg.insert(ctx, follow)
}

// insert stores a new edge. If a concurrent request stored the same pair first,
// the unique index rejects the insert and the existing edge is loaded instead.
func (fg *followGorm) insert(ctx context.Context, follow *domain.Follow) error {
	err := fg.db.WithContext(ctx).Omit("User", "Author").Create(follow).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		follow.ID = 0
		return fg.byPair(ctx, follow)
	}
	return err
}

// byPair loads the edge between follow's user and author into follow.
func (fg *followGorm) byPair(ctx context.Context, follow *domain.Follow) error {
	db := fg.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", follow.UserID, follow.AuthorID)
	return first(db, follow, "The follow does not exist.")
}

// Delete removes the edge if there is one.
func (fg *followGorm) Delete(ctx context.Context, follow *domain.Follow) error {
	return fg.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", follow.UserID, follow.AuthorID).
		Delete(&domain.Follow{}).Error
}

package crud

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"yatube/domain"
	"yatube/errs"
)

// PostService manages Posts.
// It implements the domain.PostService interface.
type PostService struct {
	postValidator
}

// postValidator runs validations on incoming Post data.
// On success, it passes the data on to postGorm.
// Otherwise, it returns the error of the validation that has failed.
type postValidator struct {
	postGorm
}

// postGorm runs CRUD operations on the database using incoming Post data.
// It assumes that data has been validated. On success, it returns nil.
// Otherwise, it returns the error of the operation that has failed.
type postGorm struct {
	db       *gorm.DB
	pageSize int
	images   domain.ImageService
}

// NewPostService returns an instance of PostService. Feeds are split into pages of pageSize posts.
func NewPostService(db *gorm.DB, pageSize int) *PostService {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &PostService{
		postValidator{
			postGorm{
				db:       db,
				pageSize: pageSize,
			},
		},
	}
}

// Ensure the PostService struct properly implements the domain.PostService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.PostService = &PostService{}

// Create runs validations needed for creating new Post database records.
func (pv *postValidator) Create(ctx context.Context, post *domain.Post) error {
	err := runPostValFns(post,
		pv.authorIdValid,
		pv.textRequired,
		pv.groupExists(ctx))
	if err != nil {
		return err
	}
	return pv.postGorm.Create(ctx, post)
}

// Update runs validations needed for changing an existing Post. Who may change it is
// decided by the caller.
func (pv *postValidator) Update(ctx context.Context, post *domain.Post) error {
	err := runPostValFns(post,
		pv.idValid,
		pv.textRequired,
		pv.groupExists(ctx))
	if err != nil {
		return err
	}
	return pv.postGorm.Update(ctx, post)
}

// Delete runs validations needed for deleting existing Post database records.
func (pv *postValidator) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return errs.IdInvalid
	}
	return pv.postGorm.Delete(ctx, id)
}

// runPostValFns runs any number of functions of type postValFn on the passed in Post object.
// If none of them returns an error, it returns nil. Otherwise, it returns the respective error.
func runPostValFns(post *domain.Post, fns ...postValFn) error {
	for _, fn := range fns {
		if err := fn(post); err != nil {
			return err
		}
	}
	return nil
}

// A postValFn is any function that takes in a pointer to a domain.Post object and returns an error.
type postValFn = func(post *domain.Post) error

// textRequired makes sure that the Post's text is not blank.
func (pv *postValidator) textRequired(post *domain.Post) error {
	if strings.TrimSpace(post.Text) == "" {
		return errs.Errorf(errs.EINVALID, "Post text must not be empty.")
	}
	return nil
}

func (pv *postValidator) idValid(post *domain.Post) error {
	if post.ID <= 0 {
		return errs.IdInvalid
	}
	return nil
}

func (pv *postValidator) authorIdValid(post *domain.Post) error {
	if post.AuthorID <= 0 {
		return errs.AuthorIdInvalid
	}
	return nil
}

// groupExists makes sure that the chosen group actually exists.
// This check only runs if the incoming Post has a GroupID.
func (pv *postValidator) groupExists(ctx context.Context) postValFn {
	return func(post *domain.Post) error {
		if post.GroupID == nil {
			return nil
		}
		err := first(pv.db.WithContext(ctx).Where("id = ?", *post.GroupID), &domain.Group{},
			"Select a valid choice. That choice is not one of the available choices.")
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return errs.Errorf(errs.EINVALID, "%s", errs.ErrorMessage(err))
		}
		return err
	}
}

// ByID retrieves a single Post by ID, along with its author and group.
// If the record doesn't exist, it returns errs.ENOTFOUND.
func (pg *postGorm) ByID(ctx context.Context, id int) (*domain.Post, error) {
	var post domain.Post
	db := pg.db.WithContext(ctx).
		Preload("Author").
		Preload("Group").
		Where("id = ?", id)
	if err := first(db, &post, "The post does not exist."); err != nil {
		return nil, err
	}
	return &post, nil
}

// Page returns one page of the feed described by filter, newest posts first.
// A page number past the last page yields an empty page.
func (pg *postGorm) Page(ctx context.Context, filter domain.PostFilter, number int) (*domain.Page, error) {
	var count int64
	if err := pg.filtered(ctx, filter).Count(&count).Error; err != nil {
		return nil, err
	}
	page := domain.NewPage(number, pg.pageSize, int(count))
	if page.OutOfRange() {
		return page, nil
	}
	err := pg.filtered(ctx, filter).
		Preload("Author").
		Preload("Group").
		Order("pub_date desc").
		Order("id desc").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&page.Posts).Error
	if err != nil {
		return nil, err
	}
	return page, nil
}

// filtered builds the query that selects the posts matching filter.
func (pg *postGorm) filtered(ctx context.Context, filter domain.PostFilter) *gorm.DB {
	db := pg.db.WithContext(ctx).Model(&domain.Post{})
	if filter.GroupID != nil {
		db = db.Where("group_id = ?", *filter.GroupID)
	}
	if filter.AuthorID != nil {
		db = db.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.FollowerID != nil {
		followed := pg.db.Model(&domain.Follow{}).Select("author_id").Where("user_id = ?", *filter.FollowerID)
		db = db.Where("author_id IN (?)", followed)
	}
	return db
}

// Create stores the data from the Post object in a new database record
// and loads its author and group.
func (pg *postGorm) Create(ctx context.Context, post *domain.Post) error {
	if err := pg.db.WithContext(ctx).Omit("Author", "Group").Create(post).Error; err != nil {
		return err
	}
	return pg.reload(ctx, post)
}

// Update writes the editable fields of a post. The author and the publication date
// are never changed.
func (pg *postGorm) Update(ctx context.Context, post *domain.Post) error {
	res := pg.db.WithContext(ctx).
		Model(&domain.Post{ID: post.ID}).
		Updates(map[string]interface{}{
			"text":     post.Text,
			"group_id": post.GroupID,
			"image":    post.Image,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
	}
	return pg.reload(ctx, post)
}

// reload replaces post with its stored version, including author and group.
func (pg *postGorm) reload(ctx context.Context, post *domain.Post) error {
	var stored domain.Post
	if err := pg.db.WithContext(ctx).Preload("Author").Preload("Group").First(&stored, post.ID).Error; err != nil {
		return err
	}
	*post = stored
	return nil
}

// Delete removes a post together with its comments and its image.
func (pg *postGorm) Delete(ctx context.Context, id int) error {
	var images []string
	err := pg.db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ? AND image <> ''", id).
		Pluck("image", &images).Error
	if err != nil {
		return err
	}
	res := pg.db.WithContext(ctx).Delete(&domain.Post{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The post does not exist.")
	}
	discardImages(pg.images, images)
	return nil
}

// discardImages removes image files that no post refers to anymore.
// Failures are only logged, the posts are gone either way.
func discardImages(is domain.ImageService, images []string) {
	if is == nil {
		return
	}
	for _, image := range images {
		if err := is.Delete(image); err != nil {
			log.WithError(err).WithField("image", image).Warn("removing image")
		}
	}
}

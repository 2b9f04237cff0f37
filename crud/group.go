package crud

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"yatube/domain"
	"yatube/errs"
)

// GroupService manages Groups.
// It implements the domain.GroupService interface.
type GroupService struct {
	groupValidator
}

// groupValidator runs validations on incoming Group data.
// On success, it passes the data on to groupGorm.
// Otherwise, it returns the error of the validation that has failed.
type groupValidator struct {
	slugRegex *regexp.Regexp
	groupGorm
}

// groupGorm runs CRUD operations on the database using incoming Group data.
type groupGorm struct {
	db *gorm.DB
}

// NewGroupService returns an instance of GroupService.
func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{
		groupValidator{
			slugRegex: regexp.MustCompile(`^[-a-zA-Z0-9_]+$`),
			groupGorm: groupGorm{
				db: db,
			},
		},
	}
}

// Ensure the GroupService struct properly implements the domain.GroupService interface.
// If it does not, then this expression becomes invalid and won't compile.
var _ domain.GroupService = &GroupService{}

// Create runs validations needed for creating new Group database records.
func (gv *groupValidator) Create(ctx context.Context, group *domain.Group) error {
	err := runGroupValFns(group,
		gv.titleRequired,
		gv.titleMaxLength,
		gv.slugFormat,
		gv.slugIsAvail(ctx),
		gv.descriptionRequired)
	if err != nil {
		return err
	}
	return gv.groupGorm.Create(ctx, group)
}

// Seed creates every group whose slug is not taken yet. Existing groups are left as they are.
func (gv *groupValidator) Seed(ctx context.Context, groups []domain.Group) error {
	for i := range groups {
		err := runGroupValFns(&groups[i],
			gv.titleRequired,
			gv.titleMaxLength,
			gv.slugFormat,
			gv.descriptionRequired)
		if err != nil {
			return err
		}
	}
	return gv.groupGorm.Seed(ctx, groups)
}

// Delete removes a group. Its posts stay and lose their group.
func (gv *groupValidator) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return errs.IdInvalid
	}
	return gv.groupGorm.Delete(ctx, id)
}

func runGroupValFns(group *domain.Group, fns ...groupValFn) error {
	for _, fn := range fns {
		if err := fn(group); err != nil {
			return err
		}
	}
	return nil
}

type groupValFn func(group *domain.Group) error

func (gv *groupValidator) titleRequired(group *domain.Group) error {
	group.Title = strings.TrimSpace(group.Title)
	if group.Title == "" {
		return errs.Errorf(errs.EINVALID, "A group title is required.")
	}
	return nil
}

func (gv *groupValidator) titleMaxLength(group *domain.Group) error {
	if utf8.RuneCountInString(group.Title) > 200 {
		return errs.Errorf(errs.EINVALID, "The group title must have at most 200 characters.")
	}
	return nil
}

// slugFormat allows letters, numbers, underscores and hyphens.
func (gv *groupValidator) slugFormat(group *domain.Group) error {
	if utf8.RuneCountInString(group.Slug) > 50 || !gv.slugRegex.MatchString(group.Slug) {
		return errs.Errorf(errs.EINVALID, "The slug may contain only letters, numbers, underscores or hyphens.")
	}
	return nil
}

func (gv *groupValidator) slugIsAvail(ctx context.Context) groupValFn {
	return func(group *domain.Group) error {
		_, err := gv.groupGorm.BySlug(ctx, group.Slug)
		if errs.ErrorCode(err) == errs.ENOTFOUND {
			return nil
		}
		if err != nil {
			return err
		}
		return errs.Errorf(errs.ECONFLICT, "A group with that slug already exists.")
	}
}

func (gv *groupValidator) descriptionRequired(group *domain.Group) error {
	if strings.TrimSpace(group.Description) == "" {
		return errs.Errorf(errs.EINVALID, "A group description is required.")
	}
	return nil
}

// ByID retrieves a Group database record by ID.
func (gg *groupGorm) ByID(ctx context.Context, id int) (*domain.Group, error) {
	var group domain.Group
	if err := first(gg.db.WithContext(ctx).Where("id = ?", id), &group, "The group does not exist."); err != nil {
		return nil, err
	}
	return &group, nil
}

// BySlug retrieves a Group database record by its slug.
func (gg *groupGorm) BySlug(ctx context.Context, slug string) (*domain.Group, error) {
	var group domain.Group
	if err := first(gg.db.WithContext(ctx).Where("slug = ?", slug), &group, "The group does not exist."); err != nil {
		return nil, err
	}
	return &group, nil
}

// All returns every group ordered by title. It backs the group choices of the post form.
func (gg *groupGorm) All(ctx context.Context) ([]domain.Group, error) {
	groups := []domain.Group{}
	if err := gg.db.WithContext(ctx).Order("title asc").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// Create stores the data from the Group object in a new database record.
func (gg *groupGorm) Create(ctx context.Context, group *domain.Group) error {
	return gg.db.WithContext(ctx).Create(group).Error
}

// Seed runs FirstOrCreate by slug for every group inside a single transaction.
func (gg *groupGorm) Seed(ctx context.Context, groups []domain.Group) error {
	return gg.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range groups {
			err := tx.Where(domain.Group{Slug: groups[i].Slug}).
				Attrs(domain.Group{Title: groups[i].Title, Description: groups[i].Description}).
				FirstOrCreate(&groups[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the group record. Its posts are kept with an empty group.
func (gg *groupGorm) Delete(ctx context.Context, id int) error {
	res := gg.db.WithContext(ctx).Delete(&domain.Group{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.Errorf(errs.ENOTFOUND, "The group does not exist.")
	}
	return nil
}

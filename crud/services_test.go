package crud

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"yatube/database"
	"yatube/domain"
)

// newTestServices returns all crud services backed by a fresh in-memory sqlite database.
// Extra options are applied after the defaults.
func newTestServices(t *testing.T, extra ...ServicesConfig) *Services {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.Config{
		Dialect: database.DialectSQLite,
		Path:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name),
	}, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	cfgs := append([]ServicesConfig{
		WithUser("pepper", "hmac-key"),
		WithPost(domain.DefaultPageSize),
		WithGroup(),
		WithComment(),
		WithFollow(),
	}, extra...)
	s, err := NewServices(db.Gorm, cfgs...)
	require.NoError(t, err)
	return s
}

func createUser(t *testing.T, s *Services, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, Password: "very-secret"}
	require.NoError(t, s.User.Create(context.Background(), user))
	return user
}

func createGroup(t *testing.T, s *Services, slug string) *domain.Group {
	t.Helper()
	group := &domain.Group{Title: "Group " + slug, Slug: slug, Description: "About " + slug}
	require.NoError(t, s.Group.Create(context.Background(), group))
	return group
}

func createPost(t *testing.T, s *Services, author *domain.User, group *domain.Group, text string) *domain.Post {
	t.Helper()
	post := &domain.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		post.GroupID = &group.ID
	}
	require.NoError(t, s.Post.Create(context.Background(), post))
	return post
}

// setImage points the stored post at an image file.
func setImage(t *testing.T, s *Services, post *domain.Post, image string) {
	t.Helper()
	require.NoError(t, s.db.Model(&domain.Post{}).Where("id = ?", post.ID).Update("image", image).Error)
}

// imagesMock records which images the services remove.
type imagesMock struct {
	mock.Mock
}

func (m *imagesMock) Create(img *domain.Image) error {
	return m.Called(img).Error(0)
}

func (m *imagesMock) Delete(relativePath string) error {
	return m.Called(relativePath).Error(0)
}

var _ domain.ImageService = &imagesMock{}

func postIDs(page *domain.Page) []int {
	ids := make([]int, 0, len(page.Posts))
	for _, p := range page.Posts {
		ids = append(ids, p.ID)
	}
	return ids
}

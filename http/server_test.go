package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/cache"
	"yatube/crud"
	"yatube/database"
	"yatube/domain"
	"yatube/storage"
)

type testApp struct {
	*Server
	services *crud.Services
	mediaDir string
}

// newTestApp returns a server backed by an in-memory sqlite database and a page cache
// that keeps pages for a minute.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(database.Config{
		Dialect: database.DialectSQLite,
		Path:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name),
	}, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db))

	mediaDir := t.TempDir()
	images := storage.NewImageService(mediaDir)
	services, err := crud.NewServices(db.Gorm,
		crud.WithImages(images),
		crud.WithUser("pepper", "hmac-key"),
		crud.WithPost(domain.DefaultPageSize),
		crud.WithGroup(),
		crud.WithComment(),
		crud.WithFollow(),
	)
	require.NoError(t, err)

	s := NewServer(services, images, Options{
		MediaDir: mediaDir,
		Pages:    cache.NewMemory(0, time.Minute),
	})
	return &testApp{Server: s, services: services, mediaDir: mediaDir}
}

func (a *testApp) createUser(t *testing.T, username string) *domain.User {
	t.Helper()
	user := &domain.User{Username: username, Password: "very-secret"}
	require.NoError(t, a.services.User.Create(context.Background(), user))
	return user
}

func (a *testApp) createGroup(t *testing.T, slug string) *domain.Group {
	t.Helper()
	group := &domain.Group{Title: "Group " + slug, Slug: slug, Description: "About " + slug}
	require.NoError(t, a.services.Group.Create(context.Background(), group))
	return group
}

func (a *testApp) createPost(t *testing.T, author *domain.User, group *domain.Group, text string) *domain.Post {
	t.Helper()
	post := &domain.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		post.GroupID = &group.ID
	}
	require.NoError(t, a.services.Post.Create(context.Background(), post))
	return post
}

// do sends a request as user, or as a guest if user is nil.
func (a *testApp) do(t *testing.T, user *domain.User, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if form != nil {
		r = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	if user != nil {
		r.AddCookie(&http.Cookie{Name: rememberCookie, Value: user.Remember})
	}
	w := httptest.NewRecorder()
	a.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func feedIDs(t *testing.T, w *httptest.ResponseRecorder) []int {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp feedResponse
	decode(t, w, &resp)
	ids := []int{}
	for _, p := range resp.Page.Posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestNotFound(t *testing.T) {
	a := newTestApp(t)
	for _, target := range []string{"/nowhere/", "/group/missing/", "/profile/nobody/", "/posts/999/"} {
		t.Run(target, func(t *testing.T) {
			w := a.do(t, nil, "GET", target, nil)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestIndex(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser(t, "leo")
	for i := 0; i < 11; i++ {
		a.createPost(t, leo, nil, fmt.Sprintf("post %d", i))
	}

	t.Run("paginates", func(t *testing.T) {
		assert.Len(t, feedIDs(t, a.do(t, nil, "GET", "/", nil)), 10)
		assert.Len(t, feedIDs(t, a.do(t, nil, "GET", "/?page=2", nil)), 1)
		assert.Len(t, feedIDs(t, a.do(t, nil, "GET", "/?page=3", nil)), 0)
		assert.Len(t, feedIDs(t, a.do(t, nil, "GET", "/?page=abc", nil)), 10)
	})

	t.Run("serves the cached page until cleared", func(t *testing.T) {
		before := a.do(t, nil, "GET", "/", nil)
		require.Equal(t, http.StatusOK, before.Code)

		a.createPost(t, leo, nil, "fresh")
		cached := a.do(t, nil, "GET", "/", nil)
		assert.Equal(t, "HIT", cached.Header().Get("X-Cache"))
		assert.Equal(t, before.Body.String(), cached.Body.String())

		require.NoError(t, a.pages.Clear(context.Background()))
		after := a.do(t, nil, "GET", "/", nil)
		assert.NotEqual(t, before.Body.String(), after.Body.String())
		assert.Contains(t, after.Body.String(), "fresh")
	})
}

func TestGroupPosts(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser(t, "leo")
	cats := a.createGroup(t, "cats")
	a.createGroup(t, "dogs")
	post := a.createPost(t, leo, cats, "meow")

	assert.Equal(t, []int{post.ID}, feedIDs(t, a.do(t, nil, "GET", "/group/cats/", nil)))
	assert.Empty(t, feedIDs(t, a.do(t, nil, "GET", "/group/dogs/", nil)))

	var resp feedResponse
	decode(t, a.do(t, nil, "GET", "/group/cats/", nil), &resp)
	require.NotNil(t, resp.Group)
	assert.Equal(t, "Group cats", resp.Group.Title)
}

func TestProfile(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser(t, "leo")
	anna := a.createUser(t, "anna")
	post := a.createPost(t, leo, nil, "hello")
	require.NoError(t, a.services.Follow.Create(context.Background(), &domain.Follow{UserID: anna.ID, AuthorID: leo.ID}))

	w := a.do(t, anna, "GET", "/profile/leo/", nil)
	assert.Equal(t, []int{post.ID}, feedIDs(t, w))

	var resp struct {
		Author struct {
			Username       string `json:"username"`
			PostCount      int    `json:"post_count"`
			FollowerCount  int    `json:"followers_count"`
			FollowingCount int    `json:"following_count"`
			Following      bool   `json:"following"`
		} `json:"author"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "leo", resp.Author.Username)
	assert.Equal(t, 1, resp.Author.PostCount)
	assert.Equal(t, 1, resp.Author.FollowerCount)
	assert.Equal(t, 0, resp.Author.FollowingCount)
	assert.True(t, resp.Author.Following)

	decode(t, a.do(t, nil, "GET", "/profile/leo/", nil), &resp)
	assert.False(t, resp.Author.Following)
}

func TestPostDetail(t *testing.T) {
	a := newTestApp(t)
	leo := a.createUser(t, "leo")
	post := a.createPost(t, leo, nil, "hello")
	a.createPost(t, leo, nil, "again")
	require.NoError(t, a.services.Comment.Create(context.Background(),
		&domain.Comment{PostID: post.ID, AuthorID: leo.ID, Text: "first"}))

	w := a.do(t, nil, "GET", postURL(post.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Post struct {
			Text   string `json:"text"`
			Author struct {
				PostCount int `json:"post_count"`
			} `json:"author"`
		} `json:"post"`
		Comments []struct {
			Text string `json:"text"`
		} `json:"comments"`
		Form map[string]interface{} `json:"form"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "hello", resp.Post.Text)
	assert.Equal(t, 2, resp.Post.Author.PostCount)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "first", resp.Comments[0].Text)
	assert.NotNil(t, resp.Form)
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                     "/",
		"/posts/1/":            "/posts/1/",
		"https://evil.example": "/",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
	}
	for next, want := range tests {
		assert.Equal(t, want, safeNext(next), next)
	}
}

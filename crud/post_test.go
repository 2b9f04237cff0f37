package crud

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/domain"
	"yatube/errs"
)

func TestPostService_Create(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	leo := createUser(t, s, "leo")
	cats := createGroup(t, s, "cats")

	post := createPost(t, s, leo, cats, "hello cats")
	assert.NotZero(t, post.ID)
	assert.False(t, post.PubDate.IsZero())
	assert.Equal(t, "leo", post.Author.Username)
	require.NotNil(t, post.Group)
	assert.Equal(t, "cats", post.Group.Slug)

	t.Run("appears first in every feed it belongs to", func(t *testing.T) {
		createPost(t, s, leo, cats, "older")
		newest := createPost(t, s, leo, cats, "newest")

		filters := map[string]domain.PostFilter{
			"index":   {},
			"group":   {GroupID: &cats.ID},
			"profile": {AuthorID: &leo.ID},
		}
		for name, filter := range filters {
			page, err := s.Post.Page(ctx, filter, 1)
			require.NoError(t, err, name)
			require.NotEmpty(t, page.Posts, name)
			assert.Equal(t, newest.ID, page.Posts[0].ID, name)
			assert.Equal(t, "leo", page.Posts[0].Author.Username, name)
		}
	})

	tests := []struct {
		name string
		post domain.Post
		code string
	}{
		{"blank text", domain.Post{Text: "   ", AuthorID: leo.ID}, errs.EINVALID},
		{"unknown group", domain.Post{Text: "hi", AuthorID: leo.ID, GroupID: intPtr(999)}, errs.EINVALID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := tt.post
			err := s.Post.Create(ctx, &post)
			assert.Equal(t, tt.code, errs.ErrorCode(err))
		})
	}

	t.Run("missing author", func(t *testing.T) {
		err := s.Post.Create(ctx, &domain.Post{Text: "hi"})
		assert.Equal(t, errs.AuthorIdInvalid, err)
	})
}

func TestPostService_GroupIsolation(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	leo := createUser(t, s, "leo")
	cats := createGroup(t, s, "cats")
	dogs := createGroup(t, s, "dogs")
	post := createPost(t, s, leo, cats, "meow")

	page, err := s.Post.Page(ctx, domain.PostFilter{GroupID: &dogs.ID}, 1)
	require.NoError(t, err)
	assert.NotContains(t, postIDs(page), post.ID)
	assert.Equal(t, 0, page.Count)

	page, err = s.Post.Page(ctx, domain.PostFilter{GroupID: &cats.ID}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{post.ID}, postIDs(page))
}

func TestPostService_Page(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	leo := createUser(t, s, "leo")
	for i := 0; i < 11; i++ {
		createPost(t, s, leo, nil, fmt.Sprintf("post %d", i))
	}

	tests := []struct {
		number      int
		posts       int
		hasNext     bool
		hasPrevious bool
	}{
		{1, 10, true, false},
		{2, 1, false, true},
		{3, 0, false, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.number), func(t *testing.T) {
			page, err := s.Post.Page(ctx, domain.PostFilter{}, tt.number)
			require.NoError(t, err)
			assert.Len(t, page.Posts, tt.posts)
			assert.Equal(t, 11, page.Count)
			assert.Equal(t, 2, page.NumPages)
			assert.Equal(t, tt.hasNext, page.HasNext)
			assert.Equal(t, tt.hasPrevious, page.HasPrevious)
		})
	}

	t.Run("newest first across pages", func(t *testing.T) {
		first, err := s.Post.Page(ctx, domain.PostFilter{}, 1)
		require.NoError(t, err)
		second, err := s.Post.Page(ctx, domain.PostFilter{}, 2)
		require.NoError(t, err)
		assert.Equal(t, "post 10", first.Posts[0].Text)
		assert.Equal(t, "post 0", second.Posts[0].Text)
	})
}

func TestPostService_Update(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	leo := createUser(t, s, "leo")
	cats := createGroup(t, s, "cats")
	post := createPost(t, s, leo, cats, "before")
	pubDate := post.PubDate

	post.Text = "after"
	post.GroupID = nil
	post.Image = "posts/1/a.png"
	require.NoError(t, s.Post.Update(ctx, post))

	stored, err := s.Post.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", stored.Text)
	assert.Nil(t, stored.GroupID)
	assert.Nil(t, stored.Group)
	assert.Equal(t, "posts/1/a.png", stored.Image)
	assert.Equal(t, leo.ID, stored.AuthorID)
	assert.True(t, pubDate.Equal(stored.PubDate))

	t.Run("unknown post", func(t *testing.T) {
		err := s.Post.Update(ctx, &domain.Post{ID: 999, Text: "x"})
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
	})
}

func TestPostService_DeleteGroupKeepsPosts(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	leo := createUser(t, s, "leo")
	cats := createGroup(t, s, "cats")
	post := createPost(t, s, leo, cats, "meow")

	require.NoError(t, s.Group.Delete(ctx, cats.ID))

	stored, err := s.Post.ByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.GroupID)
}

func TestPostService_Delete(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	leo := createUser(t, s, "leo")
	post := createPost(t, s, leo, nil, "bye")
	require.NoError(t, s.Comment.Create(ctx, &domain.Comment{PostID: post.ID, AuthorID: leo.ID, Text: "first"}))

	require.NoError(t, s.Post.Delete(ctx, post.ID))
	_, err := s.Post.ByID(ctx, post.ID)
	assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))

	comments, err := s.Comment.ByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestPostService_DeleteRemovesImage(t *testing.T) {
	images := &imagesMock{}
	s := newTestServices(t, WithImages(images))
	ctx := context.Background()
	leo := createUser(t, s, "leo")
	post := createPost(t, s, leo, nil, "picture")
	setImage(t, s, post, "posts/1/cat.png")
	plain := createPost(t, s, leo, nil, "no picture")

	images.On("Delete", "posts/1/cat.png").Return(errors.New("disk gone")).Once()
	require.NoError(t, s.Post.Delete(ctx, post.ID))
	require.NoError(t, s.Post.Delete(ctx, plain.ID))
	images.AssertExpectations(t)
	images.AssertNumberOfCalls(t, "Delete", 1)
}

func intPtr(i int) *int {
	return &i
}

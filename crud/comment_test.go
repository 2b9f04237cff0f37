package crud

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yatube/domain"
	"yatube/errs"
)

func TestCommentService(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	leo := createUser(t, s, "leo")
	anna := createUser(t, s, "anna")
	post := createPost(t, s, leo, nil, "hello")

	first := &domain.Comment{PostID: post.ID, AuthorID: anna.ID, Text: "first"}
	require.NoError(t, s.Comment.Create(ctx, first))
	assert.Equal(t, "anna", first.Author.Username)
	assert.False(t, first.Created.IsZero())
	require.NoError(t, s.Comment.Create(ctx, &domain.Comment{PostID: post.ID, AuthorID: leo.ID, Text: "second"}))

	comments, err := s.Comment.ByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "second", comments[1].Text)
	assert.Equal(t, "leo", comments[1].Author.Username)

	t.Run("blank text", func(t *testing.T) {
		err := s.Comment.Create(ctx, &domain.Comment{PostID: post.ID, AuthorID: anna.ID, Text: " "})
		assert.Equal(t, errs.EINVALID, errs.ErrorCode(err))
	})

	t.Run("unknown post", func(t *testing.T) {
		err := s.Comment.Create(ctx, &domain.Comment{PostID: 999, AuthorID: anna.ID, Text: "hi"})
		assert.Equal(t, errs.ENOTFOUND, errs.ErrorCode(err))
	})
}

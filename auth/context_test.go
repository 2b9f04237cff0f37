package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"yatube/domain"
)

func TestUserContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetUser(ctx))

	user := &domain.User{ID: 1, Username: "leo"}
	ctx = SetUser(ctx, user)
	assert.Same(t, user, GetUser(ctx))

	ctx = context.WithValue(context.Background(), "user", user)
	assert.Nil(t, GetUser(ctx))
}

package actor_test

import (
	"context"
	"testing"

	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	a := &actor.Actor{ID: "user-1", Name: "Test Pharmacist", BranchID: "branch-1"}

	ctx := actor.WithActor(context.Background(), a)
	got := actor.FromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.ID)
	assert.Equal(t, "branch-1", got.BranchID)

	assert.Nil(t, actor.FromContext(context.Background()))
}

func TestSystemActor(t *testing.T) {
	sys := actor.SystemActor()
	assert.True(t, sys.IsSystem())
	assert.Equal(t, "system", sys.String())

	// A missing actor reads as the system too.
	var none *actor.Actor
	assert.True(t, none.IsSystem())

	user := &actor.Actor{ID: "user-1", Name: "Test Pharmacist"}
	assert.False(t, user.IsSystem())
	assert.Equal(t, "Test Pharmacist (user-1)", user.String())
}

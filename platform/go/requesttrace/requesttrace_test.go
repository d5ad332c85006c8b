package requesttrace

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	actor := User(uuid.New(), "ADMIN", "corr-1")

	ctx := IntoContext(context.Background(), actor)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, actor, got)

	_, ok = FromContext(context.Background())
	require.False(t, ok)
}

func TestCorrelationFallback(t *testing.T) {
	require.Equal(t, "corr-1", User(uuid.New(), "STUDENT", "corr-1").Correlation())
	require.Equal(t, CorrelationFallback, User(uuid.New(), "STUDENT", "").Correlation())
	require.Equal(t, CorrelationFallback, System("").Correlation())
}

func TestActorKinds(t *testing.T) {
	user := User(uuid.New(), "INSTRUCTOR", "corr-2")
	require.Equal(t, KindUser, user.Kind)

	system := System("sweep-42")
	require.Equal(t, KindSystem, system.Kind)
	require.Equal(t, uuid.Nil, system.UserID)
	require.Equal(t, "sweep-42", system.Correlation())
}

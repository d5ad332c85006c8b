package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestScopeRoundTrip(t *testing.T) {
	scope := Scope{TenantID: uuid.New(), Slug: "aceflight"}

	ctx := WithScope(context.Background(), scope)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, scope, got)
}

func TestRequire(t *testing.T) {
	_, err := Require(context.Background())
	require.ErrorIs(t, err, ErrMissingScope)

	// A zero tenant id is as useless as no scope at all.
	ctx := WithScope(context.Background(), Scope{})
	_, err = Require(ctx)
	require.ErrorIs(t, err, ErrMissingScope)

	scope := Scope{TenantID: uuid.New(), Slug: "aceflight"}
	got, err := Require(WithScope(context.Background(), scope))
	require.NoError(t, err)
	require.Equal(t, scope, got)
}

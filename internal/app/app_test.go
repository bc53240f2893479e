package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"retailhub/backend/internal/config"
	"retailhub/backend/internal/domain"
	"retailhub/backend/internal/store/memory"
)

func TestBuildFallsBackToMemoryWithoutBackends(t *testing.T) {
	d, err := Build(context.Background(), config.Config{}, zap.NewNop())
	require.NoError(t, err)
	defer d.Close()

	shops, err := d.Service.ListShops(context.Background())
	require.NoError(t, err)
	assert.Len(t, shops, 2)
	assert.NotNil(t, d.Metrics)
}

func TestBootstrapAdminOnlyForEmptyUserTable(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	require.NoError(t, bootstrapAdmin(ctx, repo, "", zap.NewNop()))
	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, bootstrapAdmin(ctx, repo, "first-admin-pass", zap.NewNop()))
	users, err = repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, domain.RoleAdmin, users[0].Role)
	assert.NotEqual(t, "first-admin-pass", users[0].Password)

	require.NoError(t, bootstrapAdmin(ctx, repo, "another-pass", zap.NewNop()))
	users, err = repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

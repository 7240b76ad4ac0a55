package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "timetable:", nil)
	ctx := context.Background()

	var dest []string
	err := repo.Get(ctx, "hour_slots:group-1", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))

	require.NoError(t, repo.Set(ctx, "hour_slots:group-1", []string{"a"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "hour_slots:*"))
	require.NoError(t, repo.Close())
}

func TestCacheRepositoryPrefixesKeys(t *testing.T) {
	repo := NewCacheRepository(nil, "timetable:", nil)
	assert.Equal(t, "timetable:hour_slots:g1", repo.key("hour_slots:g1"))
}

package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/repository"
)

func setupPostgres(t *testing.T) *repository.Postgres {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN must be set to run Postgres tests")
	}

	store, err := repository.NewPostgres(dsn)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	gt.NoError(t, store.Ping(context.Background()))
	return store
}

func TestPostgresListCandidates(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	tweets, err := store.ListCandidates(ctx, 10, 0.5)
	gt.NoError(t, err)

	for _, tw := range tweets {
		gt.False(t, tw.Processed())
		gt.True(t, tw.EngagementScore >= 0.5)
	}
	for i := 1; i < len(tweets); i++ {
		gt.True(t, tweets[i-1].EngagementScore >= tweets[i].EngagementScore)
	}
}

func TestPostgresMarkProcessedMissing(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	err := store.MarkProcessed(ctx, -1, []model.MemoryID{model.NewMemoryID()})
	gt.Error(t, err)
}

func TestPostgresGetPersona(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	persona, err := store.Get(ctx)
	gt.NoError(t, err)
	gt.NotEqual(t, persona.Name, "")
}

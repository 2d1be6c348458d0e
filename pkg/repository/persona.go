package repository

import (
	"context"
	"time"

	"github.com/marvin-labs/memoria/pkg/cache"
	"github.com/marvin-labs/memoria/pkg/model"
)

// CachedPersona wraps a PersonaStore with a TTL cache. The character
// definition changes rarely, so evaluator prompt builds read a snapshot
// instead of hitting the database on every create.
type CachedPersona struct {
	inner PersonaStore
	cache *cache.Cache[string, *model.Persona]
}

const personaCacheKey = "persona"

func NewCachedPersona(inner PersonaStore, ttl time.Duration) *CachedPersona {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedPersona{
		inner: inner,
		cache: cache.New[string, *model.Persona](1, ttl),
	}
}

func (c *CachedPersona) Get(ctx context.Context) (*model.Persona, error) {
	if persona, ok := c.cache.Get(personaCacheKey); ok {
		return persona, nil
	}

	persona, err := c.inner.Get(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(personaCacheKey, persona)

	return persona, nil
}

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/repository"
)

type countingPersonas struct {
	calls int
	err   error
}

func (c *countingPersonas) Get(_ context.Context) (*model.Persona, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &model.Persona{Name: "Marvin", Version: "7"}, nil
}

func TestCachedPersonaServesSnapshot(t *testing.T) {
	inner := &countingPersonas{}
	store := repository.NewCachedPersona(inner, time.Minute)

	for i := 0; i < 5; i++ {
		persona, err := store.Get(context.Background())
		gt.NoError(t, err)
		gt.Equal(t, persona.Name, "Marvin")
	}
	gt.Equal(t, inner.calls, 1)
}

func TestCachedPersonaDoesNotCacheErrors(t *testing.T) {
	inner := &countingPersonas{err: errors.New("db down")}
	store := repository.NewCachedPersona(inner, time.Minute)

	_, err := store.Get(context.Background())
	gt.Error(t, err)

	inner.err = nil
	persona, err := store.Get(context.Background())
	gt.NoError(t, err)
	gt.Equal(t, persona.Version, "7")
	gt.Equal(t, inner.calls, 2)
}

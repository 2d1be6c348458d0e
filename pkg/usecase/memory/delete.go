package memory

import (
	"context"

	"github.com/marvin-labs/memoria/pkg/model"
	"github.com/marvin-labs/memoria/pkg/utils/logging"
)

// Delete removes a memory record. A missing ID surfaces as
// model.ErrMemoryNotFound, distinct from store failures.
func (u *UseCase) Delete(ctx context.Context, id model.MemoryID) error {
	if err := u.store.Delete(ctx, id); err != nil {
		return err
	}

	logging.From(ctx).Info("memory deleted", "id", id)
	return nil
}

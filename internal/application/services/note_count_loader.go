package services

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/zatekoja/intakedesk/internal/domain/repositories"
)

// newNoteCountLoader batches note count lookups into one grouped query.
// Appointments without notes resolve to zero.
func newNoteCountLoader(notes repositories.NoteRepository) *dataloader.Loader[string, int] {
	return dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[int] {
		results := make([]*dataloader.Result[int], len(keys))
		counts, err := notes.CountByAppointments(ctx, keys)
		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[int]{Error: err}
				continue
			}
			results[i] = &dataloader.Result[int]{Data: counts[key]}
		}
		return results
	},
		dataloader.WithBatchCapacity[string, int](MaxPageSize),
		dataloader.WithWait[string, int](time.Millisecond),
	)
}

package storage

import (
	"context"
	"errors"

	"pairwatch/internal/model"
)

// Multi writes every discovery to all of its sinks.
type Multi []Storage

// PutDiscovery writes to each sink and joins their errors.
func (m Multi) PutDiscovery(ctx context.Context, discovery model.Discovery) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutDiscovery(ctx, discovery); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

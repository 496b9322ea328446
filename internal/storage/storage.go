package storage

import (
	"context"

	"pairwatch/internal/model"
)

// Storage defines a sink for processed pair discoveries.
type Storage interface {
	PutDiscovery(ctx context.Context, discovery model.Discovery) error
}

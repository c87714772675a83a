package cache

import (
	"context"

	"github.com/google/uuid"
)

// NoopCache satisfies Cache when caching is disabled. Every read is a
// miss and every write is discarded.
type NoopCache struct{}

// NewNoopCache returns a cache that stores nothing.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (n *NoopCache) Get(ctx context.Context, layer Layer, id string, dest interface{}) bool {
	return false
}

func (n *NoopCache) Set(ctx context.Context, layer Layer, id string, value interface{}) error {
	return nil
}

func (n *NoopCache) SetWithJitter(ctx context.Context, layer Layer, id string, value interface{}) error {
	return nil
}

func (n *NoopCache) Delete(ctx context.Context, layer Layer, id string) error {
	return nil
}

func (n *NoopCache) ScanPattern(ctx context.Context, pattern string, limit int) ([]string, error) {
	return nil, nil
}

func (n *NoopCache) InvalidateTenantLayer(ctx context.Context, tenantID uuid.UUID, layer Layer) (int64, error) {
	return 0, nil
}

func (n *NoopCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return 0, nil
}

func (n *NoopCache) Stats() Stats {
	return Stats{}
}

func (n *NoopCache) Health(ctx context.Context) error {
	return nil
}

func (n *NoopCache) Close() error {
	return nil
}

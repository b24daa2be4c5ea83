package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gmendonca/nfe-pipeline/internal/logger"
	"github.com/gmendonca/nfe-pipeline/internal/normalize"
)

// ErrMissingBasePath is returned when persistence is attempted without a
// configured destination path.
var ErrMissingBasePath = errors.New("storage: base path is not configured")

// Loader persists normalized tables into partitioned object storage.
type Loader struct {
	store ObjectStore
}

// NewLoader creates a Loader over the given store.
func NewLoader(store ObjectStore) *Loader {
	return &Loader{store: store}
}

// Persist writes the table under basePath, replacing the contents of every
// (year, month) partition present in it. Rows without partition keys are
// written through to the hive default partition and never trigger a purge.
//
// The purge and the write are separate operations: a failure between them
// leaves already-purged partitions empty (no rollback), and concurrent
// writers against the same partitions are not synchronized. Reruns with the
// same table converge to the same final partition contents.
func (l *Loader) Persist(ctx context.Context, table *normalize.Table, basePath string) error {
	base := strings.TrimRight(strings.TrimSpace(basePath), "/")
	if base == "" {
		return ErrMissingBasePath
	}

	log := logger.FromContext(ctx)
	if table == nil || table.NumRows() == 0 {
		log.Info().Msg("no rows to persist, skipping load")
		return nil
	}

	for _, part := range table.Partitions() {
		dir := base + "/" + PartitionDir(part)
		exists, err := l.store.Exists(ctx, dir)
		if err != nil {
			return fmt.Errorf("check partition %s: %w", dir, err)
		}
		if !exists {
			continue
		}
		if err := l.store.DeleteContents(ctx, dir); err != nil {
			return fmt.Errorf("purge partition %s: %w", dir, err)
		}
		log.Info().Str("partition", dir).Msg("existing partition purged")
	}

	if err := l.store.WriteColumnar(ctx, table, base); err != nil {
		return fmt.Errorf("write table to %s: %w", base, err)
	}

	log.Info().
		Int("rows", table.NumRows()).
		Int("partitions", len(table.Partitions())).
		Str("base_path", base).
		Msg("table persisted")
	return nil
}

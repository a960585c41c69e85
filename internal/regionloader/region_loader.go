package regionloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/faactracker/internal/domain"
	"github.com/rpattn/faactracker/internal/repository"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

type RegionLoader struct {
	Loader *dataloader.Loader
}

func NewRegionLoader(repo repository.RegionRepository) *RegionLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := make([]uuid.UUID, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				return failAll(len(keys), fmt.Errorf("invalid UUID: %w", err))
			}
			ids[i] = id
		}

		regions, err := repo.GetByIDs(ctx, ids)
		if err != nil {
			return failAll(len(keys), err)
		}

		byID := make(map[uuid.UUID]domain.Region, len(regions))
		for _, r := range regions {
			byID[r.ID] = r
		}

		// results must follow key order
		results := make([]*dataloader.Result, len(keys))
		for i, id := range ids {
			if r, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: r}
			} else {
				results[i] = &dataloader.Result{Error: fmt.Errorf("region %s: %w", id, repository.ErrNotFound)}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(2*time.Millisecond))

	return &RegionLoader{Loader: loader}
}

// Load resolves one region, batching with concurrent calls on the same loader.
func (l *RegionLoader) Load(ctx context.Context, id uuid.UUID) (domain.Region, error) {
	data, err := l.Loader.Load(ctx, dataloader.StringKey(id.String()))()
	if err != nil {
		return domain.Region{}, err
	}
	return data.(domain.Region), nil
}

// LoadMany resolves regions in key order in a single batch.
func (l *RegionLoader) LoadMany(ctx context.Context, ids []uuid.UUID) ([]domain.Region, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	data, errs := l.Loader.LoadMany(ctx, dataloader.NewKeysFromStrings(keys))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	regions := make([]domain.Region, len(data))
	for i, d := range data {
		regions[i] = d.(domain.Region)
	}
	return regions, nil
}

func failAll(n int, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, n)
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

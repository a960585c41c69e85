package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/faactracker/internal/regionloader"
	"github.com/rpattn/faactracker/internal/repository"
)

type ctxKey string

const regionLoaderKey ctxKey = "regionLoader"

// DataLoaderMiddleware attaches a per-request region loader to the request context
func DataLoaderMiddleware(repo repository.RegionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := regionloader.NewRegionLoader(repo)
			ctx := context.WithValue(r.Context(), regionLoaderKey, loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RegionLoaderFromContext retrieves the region loader from context
func RegionLoaderFromContext(ctx context.Context) *regionloader.RegionLoader {
	if l, ok := ctx.Value(regionLoaderKey).(*regionloader.RegionLoader); ok {
		return l
	}
	return nil
}

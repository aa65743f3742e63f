package songs

import (
	"context"

	"justanote/pkg/models"
	"justanote/pkg/performance"
)

// Lookup is the search half of Client
type Lookup interface {
	Search(ctx context.Context, query string) []models.SongRef
}

// Searcher runs searches per session so that a newer query from the same
// session supersedes one still in flight
type Searcher struct {
	lookup     Lookup
	superseder *performance.Superseder
}

// NewSearcher wraps lookup
func NewSearcher(lookup Lookup) *Searcher {
	return &Searcher{lookup: lookup, superseder: performance.NewSuperseder()}
}

// Search returns performance.ErrSuperseded when a newer search for the same
// session started before this one finished
func (s *Searcher) Search(ctx context.Context, sessionID, query string) ([]models.SongRef, error) {
	return performance.Supersede(ctx, s.superseder, sessionID, func(ctx context.Context) ([]models.SongRef, error) {
		return s.lookup.Search(ctx, query), nil
	})
}

package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pagetrack/pagetrack-server/internal/config"
	"github.com/pagetrack/pagetrack-server/internal/logger"
	"github.com/pagetrack/pagetrack-server/internal/search"
	"github.com/pagetrack/pagetrack-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount, "created", index.Created())

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index from the store in the
// background when it was just created or is empty.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	bookService := do.MustInvoke[*service.BookService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if !indexHandle.Created() && docCount > 0 {
		return
	}

	log.Info("Search index is new or empty, triggering reindex")

	go func() {
		indexed, err := bookService.Reindex(context.Background())
		if err != nil {
			log.Error("Search reindex failed", "error", err)
			return
		}
		log.Info("Search reindex completed", "documents", indexed)
	}()
}

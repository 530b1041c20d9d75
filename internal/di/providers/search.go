package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/rolodexapp/rolodex-server/internal/config"
	"github.com/rolodexapp/rolodex-server/internal/domain"
	"github.com/rolodexapp/rolodex-server/internal/logger"
	"github.com/rolodexapp/rolodex-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.Data.BasePath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// ReindexIfNeeded repopulates an empty search index from the store. The index
// is rebuilt from scratch after mapping version bumps or on-disk corruption,
// so an empty index with stored contacts means it is stale.
func ReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	var contacts []*domain.Contact
	for contact, err := range storeHandle.Contacts.List(ctx) {
		if err != nil {
			log.Error("Reindex scan failed", "error", err)
			return
		}
		contacts = append(contacts, contact)
	}
	if len(contacts) == 0 {
		return
	}

	log.Info("Search index is empty but contacts exist, triggering initial reindex",
		"contact_count", len(contacts),
	)

	go func() {
		if err := indexHandle.IndexContacts(contacts); err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		count, _ := indexHandle.DocumentCount()
		log.Info("Initial search reindex completed", "documents", count)
	}()
}

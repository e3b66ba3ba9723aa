// Package catalog provides read-only access to the media library snapshot
// the rule engine evaluates. The canonical implementation is backed by
// Tautulli, which mirrors the Plex library together with watch statistics.
package catalog

import (
	"context"

	"github.com/plexsweep/plexsweep/internal/rules"
)

// Page is one page of catalog items. Callers page by advancing the offset
// until an empty page is returned.
type Page struct {
	Items []rules.MediaItem
	// Offset is the offset this page was fetched at.
	Offset int
}

// Catalog lists media items of a given type, page by page. Implementations
// must be safe for concurrent use.
type Catalog interface {
	ListMediaItems(ctx context.Context, mediaType rules.MediaType, offset, limit int) (*Page, error)
}

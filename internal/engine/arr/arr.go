// Package arr abstracts the media managers that own the actual files.
// Radarr handles movies, Sonarr handles series; the engine only speaks
// this interface.
package arr

import (
	"context"
	"errors"
)

// ErrNotManaged indicates the media item is not tracked by the manager.
// Deletion treats it as already gone.
var ErrNotManaged = errors.New("media item is not managed")

// MediaRef identifies a media item for lookup in a manager's library.
type MediaRef struct {
	Title  string
	Year   int
	TmdbID *int32
	TvdbID *int32
}

// Arrer is the deletion surface of a media manager.
type Arrer interface {
	// ResolveID finds the manager's internal id for a media item, or
	// ErrNotManaged when the library does not contain it.
	ResolveID(ctx context.Context, ref MediaRef) (int32, error)
	// DeleteMedia removes a single item and its files. Deleting an id the
	// manager no longer knows is not an error.
	DeleteMedia(ctx context.Context, id int32, title string) error
	// BulkDelete removes several items in one call where the manager
	// supports it.
	BulkDelete(ctx context.Context, ids []int32) error
}

// Package radarr implements the arr.Arrer interface for movies.
package radarr

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	radarrAPI "github.com/devopsarr/radarr-go/radarr"
	"github.com/plexsweep/plexsweep/internal/cache"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/engine/arr"
)

var _ arr.Arrer = (*Radarr)(nil)

type Radarr struct {
	client     *radarrAPI.APIClient
	cfg        *config.RadarrConfig
	dryRun     bool
	itemsCache *cache.PrefixedCache[[]radarrAPI.MovieResource]
}

func radarrAuthCtx(ctx context.Context, cfg *config.RadarrConfig) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		return ctx
	}
	return context.WithValue(
		ctx,
		radarrAPI.ContextAPIKeys,
		map[string]radarrAPI.APIKey{
			"X-Api-Key": {Key: cfg.APIKey},
		},
	)
}

// NewClient creates a Radarr API client from the configured URL.
func NewClient(cfg *config.RadarrConfig) *radarrAPI.APIClient {
	rcfg := radarrAPI.NewConfiguration()

	url := cfg.URL
	if strings.HasPrefix(url, "http://") {
		rcfg.Scheme = "http"
		url = strings.TrimPrefix(url, "http://")
	} else if strings.HasPrefix(url, "https://") {
		rcfg.Scheme = "https"
		url = strings.TrimPrefix(url, "https://")
	}
	rcfg.Host = url

	return radarrAPI.NewAPIClient(rcfg)
}

func New(client *radarrAPI.APIClient, cfg *config.RadarrConfig, dryRun bool, itemsCache *cache.PrefixedCache[[]radarrAPI.MovieResource]) *Radarr {
	return &Radarr{
		client:     client,
		cfg:        cfg,
		dryRun:     dryRun,
		itemsCache: itemsCache,
	}
}

// ResolveID finds the Radarr movie id for a media item, matching by TMDB
// id first and title+year as a fallback.
func (r *Radarr) ResolveID(ctx context.Context, ref arr.MediaRef) (int32, error) {
	movies, err := r.getItems(ctx)
	if err != nil {
		return 0, err
	}

	if ref.TmdbID != nil {
		for _, m := range movies {
			if m.GetTmdbId() == *ref.TmdbID {
				return m.GetId(), nil
			}
		}
	}

	title := strings.ToLower(ref.Title)
	for _, m := range movies {
		if strings.ToLower(m.GetTitle()) == title && int(m.GetYear()) == ref.Year {
			return m.GetId(), nil
		}
	}

	return 0, fmt.Errorf("movie %q (%d): %w", ref.Title, ref.Year, arr.ErrNotManaged)
}

func (r *Radarr) getItems(ctx context.Context) ([]radarrAPI.MovieResource, error) {
	cachedItems, err := r.itemsCache.Get(ctx, "all")
	if err != nil {
		log.Debug("Failed to get Radarr items from cache, fetching from API", "error", err)
	}
	if len(cachedItems) != 0 {
		return cachedItems, nil
	}

	movies, resp, err := r.client.MovieAPI.ListMovie(radarrAuthCtx(ctx, r.cfg)).Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list Radarr movies: %w", err)
	}
	defer resp.Body.Close() //nolint: errcheck

	if err := r.itemsCache.Set(ctx, "all", movies); err != nil {
		log.Warn("Failed to cache Radarr items", "error", err)
	}
	return movies, nil
}

// DeleteMedia deletes a movie and its files from Radarr. A movie Radarr
// no longer tracks counts as already deleted.
func (r *Radarr) DeleteMedia(ctx context.Context, id int32, title string) error {
	if r.dryRun {
		log.Infof("Dry run: Would delete Radarr movie %s (id %d)", title, id)
		return nil
	}

	resp, err := r.client.MovieAPI.DeleteMovie(radarrAuthCtx(ctx, r.cfg), id).
		DeleteFiles(true).
		AddImportExclusion(r.cfg.AddImportExclusion).
		Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			log.Warn("Radarr movie already gone", "movie", title, "radarr_id", id)
			return nil
		}
		return fmt.Errorf("failed to delete Radarr movie %s: %w", title, err)
	}
	defer resp.Body.Close() //nolint: errcheck

	r.invalidateItems(ctx)
	log.Infof("Deleted Radarr movie %s (id %d)", title, id)
	return nil
}

// BulkDelete removes several movies through the movie editor endpoint.
func (r *Radarr) BulkDelete(ctx context.Context, ids []int32) error {
	if len(ids) == 0 {
		return nil
	}
	if r.dryRun {
		log.Infof("Dry run: Would bulk delete %d Radarr movies", len(ids))
		return nil
	}

	resource := radarrAPI.NewMovieEditorResource()
	resource.SetMovieIds(ids)
	resource.SetDeleteFiles(true)
	resource.SetAddImportExclusion(r.cfg.AddImportExclusion)

	resp, err := r.client.MovieEditorAPI.DeleteMovieEditor(radarrAuthCtx(ctx, r.cfg)).
		MovieEditorResource(*resource).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to bulk delete %d Radarr movies: %w", len(ids), err)
	}
	defer resp.Body.Close() //nolint: errcheck

	r.invalidateItems(ctx)
	log.Infof("Bulk deleted %d Radarr movies", len(ids))
	return nil
}

func (r *Radarr) invalidateItems(ctx context.Context) {
	if err := r.itemsCache.Clear(ctx); err != nil {
		log.Debug("Failed to clear Radarr items cache", "error", err)
	}
}

// Package sonarr implements the arr.Arrer interface for series.
package sonarr

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	sonarrAPI "github.com/devopsarr/sonarr-go/sonarr"
	"github.com/plexsweep/plexsweep/internal/cache"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/engine/arr"
)

var _ arr.Arrer = (*Sonarr)(nil)

type Sonarr struct {
	client     *sonarrAPI.APIClient
	cfg        *config.SonarrConfig
	dryRun     bool
	itemsCache *cache.PrefixedCache[[]sonarrAPI.SeriesResource]
}

func sonarrAuthCtx(ctx context.Context, cfg *config.SonarrConfig) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg == nil {
		return ctx
	}
	return context.WithValue(
		ctx,
		sonarrAPI.ContextAPIKeys,
		map[string]sonarrAPI.APIKey{
			"X-Api-Key": {Key: cfg.APIKey},
		},
	)
}

// NewClient creates a Sonarr API client from the configured URL.
func NewClient(cfg *config.SonarrConfig) *sonarrAPI.APIClient {
	scfg := sonarrAPI.NewConfiguration()

	url := cfg.URL
	if strings.HasPrefix(url, "http://") {
		scfg.Scheme = "http"
		url = strings.TrimPrefix(url, "http://")
	} else if strings.HasPrefix(url, "https://") {
		scfg.Scheme = "https"
		url = strings.TrimPrefix(url, "https://")
	}
	scfg.Host = url

	return sonarrAPI.NewAPIClient(scfg)
}

func New(client *sonarrAPI.APIClient, cfg *config.SonarrConfig, dryRun bool, itemsCache *cache.PrefixedCache[[]sonarrAPI.SeriesResource]) *Sonarr {
	return &Sonarr{
		client:     client,
		cfg:        cfg,
		dryRun:     dryRun,
		itemsCache: itemsCache,
	}
}

// ResolveID finds the Sonarr series id for a media item, matching by
// TVDB id first and title+year as a fallback.
func (s *Sonarr) ResolveID(ctx context.Context, ref arr.MediaRef) (int32, error) {
	series, err := s.getItems(ctx)
	if err != nil {
		return 0, err
	}

	if ref.TvdbID != nil {
		for _, sr := range series {
			if sr.GetTvdbId() == *ref.TvdbID {
				return sr.GetId(), nil
			}
		}
	}

	title := strings.ToLower(ref.Title)
	for _, sr := range series {
		if strings.ToLower(sr.GetTitle()) == title && int(sr.GetYear()) == ref.Year {
			return sr.GetId(), nil
		}
	}

	return 0, fmt.Errorf("series %q (%d): %w", ref.Title, ref.Year, arr.ErrNotManaged)
}

func (s *Sonarr) getItems(ctx context.Context) ([]sonarrAPI.SeriesResource, error) {
	cachedItems, err := s.itemsCache.Get(ctx, "all")
	if err != nil {
		log.Debug("Failed to get Sonarr items from cache, fetching from API", "error", err)
	}
	if len(cachedItems) != 0 {
		return cachedItems, nil
	}

	series, resp, err := s.client.SeriesAPI.ListSeries(sonarrAuthCtx(ctx, s.cfg)).
		IncludeSeasonImages(false).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to list Sonarr series: %w", err)
	}
	defer resp.Body.Close() //nolint: errcheck

	if err := s.itemsCache.Set(ctx, "all", series); err != nil {
		log.Warn("Failed to cache Sonarr items", "error", err)
	}
	return series, nil
}

// DeleteMedia deletes a series and its files from Sonarr. A series
// Sonarr no longer tracks counts as already deleted.
func (s *Sonarr) DeleteMedia(ctx context.Context, id int32, title string) error {
	if s.dryRun {
		log.Infof("Dry run: Would delete Sonarr series %s (id %d)", title, id)
		return nil
	}

	resp, err := s.client.SeriesAPI.DeleteSeries(sonarrAuthCtx(ctx, s.cfg), id).
		DeleteFiles(true).
		AddImportListExclusion(s.cfg.AddImportExclusion).
		Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			log.Warn("Sonarr series already gone", "series", title, "sonarr_id", id)
			return nil
		}
		return fmt.Errorf("failed to delete Sonarr series %s: %w", title, err)
	}
	defer resp.Body.Close() //nolint: errcheck

	s.invalidateItems(ctx)
	log.Infof("Deleted Sonarr series %s (id %d)", title, id)
	return nil
}

// BulkDelete removes several series through the series editor endpoint.
func (s *Sonarr) BulkDelete(ctx context.Context, ids []int32) error {
	if len(ids) == 0 {
		return nil
	}
	if s.dryRun {
		log.Infof("Dry run: Would bulk delete %d Sonarr series", len(ids))
		return nil
	}

	resource := sonarrAPI.NewSeriesEditorResource()
	resource.SetSeriesIds(ids)
	resource.SetDeleteFiles(true)
	resource.SetAddImportListExclusion(s.cfg.AddImportExclusion)

	resp, err := s.client.SeriesEditorAPI.DeleteSeriesEditor(sonarrAuthCtx(ctx, s.cfg)).
		SeriesEditorResource(*resource).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to bulk delete %d Sonarr series: %w", len(ids), err)
	}
	defer resp.Body.Close() //nolint: errcheck

	s.invalidateItems(ctx)
	log.Infof("Bulk deleted %d Sonarr series", len(ids))
	return nil
}

func (s *Sonarr) invalidateItems(ctx context.Context) {
	if err := s.itemsCache.Clear(ctx); err != nil {
		log.Debug("Failed to clear Sonarr items cache", "error", err)
	}
}

package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/plexsweep/plexsweep/internal/cache"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/rules"
	"golang.org/x/sync/errgroup"
)

// Section is one Plex library section as reported by Tautulli.
type Section struct {
	ID   string `json:"section_id"`
	Name string `json:"section_name"`
	Type string `json:"section_type"`
}

// TautulliClient implements Catalog against the Tautulli API.
type TautulliClient struct {
	baseURL string
	apiKey  string
	client  *http.Client

	sectionsCache *cache.PrefixedCache[[]Section]
}

var _ Catalog = (*TautulliClient)(nil)

// NewTautulli creates a new Tautulli-backed catalog client.
func NewTautulli(cfg *config.TautulliConfig, sectionsCache *cache.PrefixedCache[[]Section]) *TautulliClient {
	return &TautulliClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		sectionsCache: sectionsCache,
	}
}

// envelope is the outer response wrapper every Tautulli API call returns.
type envelope struct {
	Response struct {
		Result  string          `json:"result"`
		Message *string         `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"response"`
}

func (c *TautulliClient) call(ctx context.Context, cmd string, params url.Values, out any) error {
	u, err := url.Parse(c.baseURL + "/api/v2")
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("apikey", c.apiKey)
	q.Set("cmd", cmd)
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tautulli request failed: %w", err)
	}
	defer resp.Body.Close() //nolint: errcheck

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("tautulli %s returned status %d: %s", cmd, resp.StatusCode, string(body))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode tautulli response: %w", err)
	}
	if env.Response.Result != "success" {
		msg := "unknown error"
		if env.Response.Message != nil {
			msg = *env.Response.Message
		}
		return fmt.Errorf("tautulli %s failed: %s", cmd, msg)
	}

	if out != nil {
		if err := json.Unmarshal(env.Response.Data, out); err != nil {
			return fmt.Errorf("failed to decode tautulli %s data: %w", cmd, err)
		}
	}
	return nil
}

// sections lists the Plex library sections, cached until explicitly cleared.
func (c *TautulliClient) sections(ctx context.Context) ([]Section, error) {
	cached, err := c.sectionsCache.Get(ctx, "all")
	if err == nil && len(cached) != 0 {
		return cached, nil
	}

	var sections []Section
	if err := c.call(ctx, "get_libraries", nil, &sections); err != nil {
		return nil, err
	}

	if err := c.sectionsCache.Set(ctx, "all", sections); err != nil {
		log.Warnf("Failed to cache tautulli sections: %v", err)
	}
	return sections, nil
}

// sectionTypeFor maps a rule media type to the Plex section type holding it.
// Episode rules evaluate show-level aggregates, so they read show sections.
func sectionTypeFor(mediaType rules.MediaType) string {
	if mediaType == rules.MediaTypeMovie {
		return "movie"
	}
	return "show"
}

// mediaInfoRow is one row of a get_library_media_info response. Tautulli
// reports several numeric fields as strings, hence the flexible types.
type mediaInfoRow struct {
	RatingKey       flexString `json:"rating_key"`
	Title           string     `json:"title"`
	Year            flexInt    `json:"year"`
	SectionID       flexString `json:"section_id"`
	MediaType       string     `json:"media_type"`
	AddedAt         epochTime  `json:"added_at"`
	LastPlayed      epochTime  `json:"last_played"`
	PlayCount       flexInt    `json:"play_count"`
	FileSize        flexInt64  `json:"file_size"`
	VideoResolution string     `json:"video_resolution"`
	Thumb           string     `json:"thumb"`
}

type mediaInfoData struct {
	RecordsFiltered int            `json:"recordsFiltered"`
	Data            []mediaInfoRow `json:"data"`
}

// metadataData is the subset of a get_metadata response used to enrich a
// catalog item with fields the media info listing does not carry.
type metadataData struct {
	Rating flexFloat `json:"rating"`
	Labels []string  `json:"labels"`
	Guids  []string  `json:"guids"`
	Media  []struct {
		Parts []struct {
			File string    `json:"file"`
			Size flexInt64 `json:"size"`
		} `json:"parts"`
	} `json:"media_info"`
}

// ListMediaItems pages through every matching library section in order and
// returns the slice of items at [offset, offset+limit).
func (c *TautulliClient) ListMediaItems(ctx context.Context, mediaType rules.MediaType, offset, limit int) (*Page, error) {
	sections, err := c.sections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tautulli sections: %w", err)
	}

	wantType := sectionTypeFor(mediaType)
	page := &Page{Offset: offset}
	remainingOffset := offset
	remaining := limit

	for _, section := range sections {
		if section.Type != wantType {
			continue
		}
		if remaining <= 0 {
			break
		}

		params := url.Values{}
		params.Set("section_id", section.ID)
		params.Set("start", strconv.Itoa(remainingOffset))
		params.Set("length", strconv.Itoa(remaining))
		params.Set("order_column", "added_at")
		params.Set("order_dir", "asc")

		var data mediaInfoData
		if err := c.call(ctx, "get_library_media_info", params, &data); err != nil {
			return nil, fmt.Errorf("failed to list media info for section %s: %w", section.ID, err)
		}

		if remainingOffset >= data.RecordsFiltered {
			// Offset points past this section entirely.
			remainingOffset -= data.RecordsFiltered
			continue
		}

		for _, row := range data.Data {
			page.Items = append(page.Items, rowToItem(row, mediaType, section))
		}
		remaining -= len(data.Data)
		// Any further items come from the start of the next section.
		remainingOffset = 0
	}

	if err := c.enrich(ctx, page.Items); err != nil {
		return nil, err
	}
	return page, nil
}

// enrich fills rating, tags, file path and external ids from per-item
// metadata. A failed lookup leaves the item unenriched; the affected
// conditions then fail closed instead of aborting the page.
func (c *TautulliClient) enrich(ctx context.Context, items []rules.MediaItem) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for i := range items {
		g.Go(func() error {
			params := url.Values{}
			params.Set("rating_key", items[i].RatingKey)

			var meta metadataData
			if err := c.call(gctx, "get_metadata", params, &meta); err != nil {
				log.Debug("Failed to get tautulli metadata", "rating_key", items[i].RatingKey, "error", err)
				return nil
			}

			if r := float64(meta.Rating); r > 0 {
				items[i].Rating = &r
			}
			items[i].Tags = meta.Labels
			for _, m := range meta.Media {
				for _, part := range m.Parts {
					if part.File != "" {
						items[i].FilePath = part.File
						break
					}
				}
			}
			for _, guid := range meta.Guids {
				if id, ok := strings.CutPrefix(guid, "tmdb://"); ok {
					if n, err := strconv.Atoi(id); err == nil {
						if v, err := safecast.ToInt32(n); err == nil {
							items[i].TmdbID = &v
						}
					}
				}
				if id, ok := strings.CutPrefix(guid, "tvdb://"); ok {
					if n, err := strconv.Atoi(id); err == nil {
						if v, err := safecast.ToInt32(n); err == nil {
							items[i].TvdbID = &v
						}
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func rowToItem(row mediaInfoRow, mediaType rules.MediaType, section Section) rules.MediaItem {
	item := rules.MediaItem{
		RatingKey: string(row.RatingKey),
		MediaType: mediaType,
		Title:     row.Title,
		Year:      int(row.Year),
		LibraryID: section.ID,
		PlayCount: int(row.PlayCount),
		Quality:   row.VideoResolution,
		PosterURL: row.Thumb,
	}
	if t := row.AddedAt.Time(); t != nil {
		item.AddedAt = t
	}
	if t := row.LastPlayed.Time(); t != nil {
		item.LastWatchedAt = t
	}
	if row.FileSize > 0 {
		size := int64(row.FileSize)
		item.FileSize = &size
	}
	return item
}

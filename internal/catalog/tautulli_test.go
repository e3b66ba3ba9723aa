package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plexsweep/plexsweep/internal/cache"
	"github.com/plexsweep/plexsweep/internal/config"
	"github.com/plexsweep/plexsweep/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func respond(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"response": map[string]any{
			"result": "success",
			"data":   json.RawMessage(raw),
		},
	})
}

// newTestTautulli serves a two-section movie library plus one show
// section, with per-item metadata.
func newTestTautulli(t *testing.T) *TautulliClient {
	t.Helper()

	sectionRows := map[string][]map[string]any{
		// Tautulli mixes strings and numbers for the same fields.
		"1": {
			{"rating_key": "11", "title": "Alpha", "year": "2018", "play_count": "0", "file_size": "1073741824", "added_at": "1600000000", "last_played": "", "video_resolution": "1080"},
			{"rating_key": 12, "title": "Beta", "year": 2019, "play_count": 2, "file_size": 2147483648, "added_at": 1600000001, "last_played": 1650000000, "video_resolution": "4k"},
		},
		"2": {
			{"rating_key": "21", "title": "Gamma", "year": "2020", "play_count": "1", "file_size": "0", "added_at": "1600000002", "last_played": "null"},
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("apikey"))

		switch r.URL.Query().Get("cmd") {
		case "get_libraries":
			respond(w, []map[string]any{
				{"section_id": "1", "section_name": "Movies", "section_type": "movie"},
				{"section_id": "2", "section_name": "More Movies", "section_type": "movie"},
				{"section_id": "3", "section_name": "Shows", "section_type": "show"},
			})
		case "get_library_media_info":
			rows := sectionRows[r.URL.Query().Get("section_id")]
			start, length := 0, len(rows)
			fmt.Sscanf(r.URL.Query().Get("start"), "%d", &start)
			fmt.Sscanf(r.URL.Query().Get("length"), "%d", &length)
			filtered := len(rows)
			if start > len(rows) {
				start = len(rows)
			}
			end := start + length
			if end > len(rows) {
				end = len(rows)
			}
			respond(w, map[string]any{
				"recordsFiltered": filtered,
				"data":            rows[start:end],
			})
		case "get_metadata":
			respond(w, map[string]any{
				"rating":     "7.5",
				"labels":     []string{"keep-maybe"},
				"guids":      []string{"tmdb://550", "imdb://tt0137523"},
				"media_info": []map[string]any{{"parts": []map[string]any{{"file": "/media/movie.mkv"}}}},
			})
		default:
			http.Error(w, "unknown cmd", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)

	return NewTautulli(
		&config.TautulliConfig{URL: srv.URL, APIKey: "test-key"},
		cache.NewPrefixedCache[[]Section](cache.NewBytes(nil), "tautulli:sections:"),
	)
}

func TestListMediaItemsAcrossSections(t *testing.T) {
	client := newTestTautulli(t)

	page, err := client.ListMediaItems(context.Background(), rules.MediaTypeMovie, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 3)

	alpha := page.Items[0]
	assert.Equal(t, "11", alpha.RatingKey)
	assert.Equal(t, "Alpha", alpha.Title)
	assert.Equal(t, 2018, alpha.Year)
	assert.Equal(t, "1", alpha.LibraryID)
	assert.Equal(t, 0, alpha.PlayCount)
	assert.Nil(t, alpha.LastWatchedAt)
	require.NotNil(t, alpha.FileSize)
	assert.Equal(t, int64(1<<30), *alpha.FileSize)
	assert.NotNil(t, alpha.AddedAt)

	beta := page.Items[1]
	assert.Equal(t, 2, beta.PlayCount)
	assert.NotNil(t, beta.LastWatchedAt)

	gamma := page.Items[2]
	assert.Equal(t, "2", gamma.LibraryID)
	assert.Nil(t, gamma.FileSize)
}

func TestListMediaItemsOffsetSkipsSections(t *testing.T) {
	client := newTestTautulli(t)

	// Offset 2 lands past the first section (2 rows) into the second.
	page, err := client.ListMediaItems(context.Background(), rules.MediaTypeMovie, 2, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Gamma", page.Items[0].Title)
}

func TestListMediaItemsEnrichesFromMetadata(t *testing.T) {
	client := newTestTautulli(t)

	page, err := client.ListMediaItems(context.Background(), rules.MediaTypeMovie, 0, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	item := page.Items[0]
	require.NotNil(t, item.Rating)
	assert.InDelta(t, 7.5, *item.Rating, 0.001)
	assert.Equal(t, []string{"keep-maybe"}, item.Tags)
	assert.Equal(t, "/media/movie.mkv", item.FilePath)
	require.NotNil(t, item.TmdbID)
	assert.Equal(t, int32(550), *item.TmdbID)
	assert.Nil(t, item.TvdbID)
}

func TestListMediaItemsToleratesMetadataFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cmd") {
		case "get_libraries":
			respond(w, []map[string]any{
				{"section_id": "1", "section_name": "Movies", "section_type": "movie"},
			})
		case "get_library_media_info":
			respond(w, map[string]any{
				"recordsFiltered": 1,
				"data":            []map[string]any{{"rating_key": "11", "title": "Alpha", "year": 2018}},
			})
		case "get_metadata":
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewTautulli(
		&config.TautulliConfig{URL: srv.URL, APIKey: "test-key"},
		cache.NewPrefixedCache[[]Section](cache.NewBytes(nil), "tautulli:sections:"),
	)

	page, err := client.ListMediaItems(context.Background(), rules.MediaTypeMovie, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Nil(t, page.Items[0].Rating)
	assert.Empty(t, page.Items[0].FilePath)
}

func TestListMediaItemsTautulliError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{
				"result":  "error",
				"message": "Invalid apikey",
			},
		})
	}))
	defer srv.Close()

	client := NewTautulli(
		&config.TautulliConfig{URL: srv.URL, APIKey: "wrong"},
		cache.NewPrefixedCache[[]Section](cache.NewBytes(nil), "tautulli:sections:"),
	)

	_, err := client.ListMediaItems(context.Background(), rules.MediaTypeMovie, 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid apikey")
}

func TestSectionTypeFor(t *testing.T) {
	assert.Equal(t, "movie", sectionTypeFor(rules.MediaTypeMovie))
	assert.Equal(t, "show", sectionTypeFor(rules.MediaTypeTV))
	// Episode rules evaluate show-level aggregates.
	assert.Equal(t, "show", sectionTypeFor(rules.MediaTypeEpisode))
}

package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TickerPulse/internal/domain/models"
	"TickerPulse/pkg/cache"
	xhttp "TickerPulse/pkg/http"
)

func TestCacheLatestStore(t *testing.T) {
	backends := map[string]func(t *testing.T) cache.Service{
		"memory": func(t *testing.T) cache.Service {
			c := cache.NewMemoryCache()
			t.Cleanup(func() { _ = c.Close() })
			return c
		},
		"redis": func(t *testing.T) cache.Service {
			mr := miniredis.RunT(t)
			c, err := cache.NewRedisCache(cache.WithRedisAddr(mr.Addr()))
			require.NoError(t, err)
			t.Cleanup(func() { _ = c.Close() })
			return c
		},
	}

	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := NewCacheLatestStore(mk(t), time.Hour)

			r, err := store.LatestReport(ctx)
			require.NoError(t, err)
			assert.Nil(t, r)

			report := &models.Report{RunID: "r1", Distinct: 1, Entries: []models.FrequencyEntry{{Ticker: "GME", Name: "GameStop", Count: 3}}}
			require.NoError(t, store.SaveReport(ctx, report))
			r, err = store.LatestReport(ctx)
			require.NoError(t, err)
			assert.Equal(t, report.Entries, r.Entries)

			f, err := store.Frame(ctx, "GME")
			require.NoError(t, err)
			assert.Nil(t, f)

			for _, sym := range []string{"GME", "AMC"} {
				require.NoError(t, store.SaveFrame(ctx, &models.Frame{Symbol: sym, Phase: "WARM"}))
			}
			f, err = store.Frame(ctx, "GME")
			require.NoError(t, err)
			assert.Equal(t, "WARM", f.Phase)

			syms, err := store.FrameSymbols(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"AMC", "GME"}, syms)
		})
	}
}

func TestHTTPCommentExpander(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/documents/abc/comments":
			if r.URL.Query().Get("page") == "1" {
				_, _ = w.Write([]byte(`{"comments":[{"id":"c2","body":"AMC","score":9,"author":"x"}],"more":true}`))
				return
			}
			_, _ = w.Write([]byte(`{"comments":[{"id":"c3","body":"GME","score":9,"author":"y"}],"more":false}`))
		case "/documents/gone/comments":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer ts.Close()

	exp := NewHTTPCommentExpander(xhttp.NewClient(xhttp.WithBaseURL(ts.URL)), 5)
	ctx := context.Background()

	more, err := exp.Expand(ctx, &models.Document{ID: "abc", MoreComments: true, Comments: []models.Comment{{ID: "c1"}}})
	require.NoError(t, err)
	require.Len(t, more, 2)
	assert.Equal(t, "c2", more[0].ID)
	assert.Equal(t, "c3", more[1].ID)

	more, err = exp.Expand(ctx, &models.Document{ID: "abc"})
	require.NoError(t, err)
	assert.Empty(t, more)

	_, err = exp.Expand(ctx, &models.Document{ID: "gone", MoreComments: true})
	assert.ErrorIs(t, err, models.ErrMalformedInput)

	_, err = exp.Expand(ctx, &models.Document{ID: "flaky", MoreComments: true})
	assert.ErrorIs(t, err, models.ErrTransientSource)

	limited := NewHTTPCommentExpander(xhttp.NewClient(xhttp.WithBaseURL(ts.URL)), 1)
	more, err = limited.Expand(ctx, &models.Document{ID: "abc", MoreComments: true})
	require.NoError(t, err)
	assert.Len(t, more, 1)
}

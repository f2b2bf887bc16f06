package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classifyReq struct {
	Text   string   `json:"text" validate:"required"`
	Policy string   `json:"policy" default:"trim" validate:"oneof=trim word"`
	Words  []string `json:"words" validate:"max=2"`
}

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		codes  []string
		fields []string
	}{
		{"valid with default", `{"text":"GME to the moon"}`, nil, nil},
		{"missing text", `{}`, []string{"ERR_REQUIRED"}, []string{"text"}},
		{"bad policy", `{"text":"x","policy":"nlp"}`, []string{"ERR_ONEOF"}, []string{"policy"}},
		{"too many words", `{"text":"x","words":["a","b","c"]}`, []string{"ERR_MAX"}, []string{"words"}},
		{"malformed json", `{"text":`, []string{"ERR_BIND"}, []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(http.MethodPost, "/", tt.body)
			var req classifyReq
			verr := ReadAndValidateRequest(c, &req)
			if tt.codes == nil {
				require.Nil(t, verr)
				assert.Equal(t, "trim", req.Policy)
				return
			}
			errs, ok := verr.([]ValidationError)
			require.True(t, ok)
			require.Len(t, errs, len(tt.codes))
			for i := range errs {
				assert.Equal(t, tt.codes[i], errs[i].Code)
				assert.Equal(t, tt.fields[i], errs[i].Field)
			}
		})
	}
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	err := NotFoundErrorf("no frame for %s", "GME").WithError(errors.New("cache miss"))
	require.NoError(t, AppErrorResponse(c, err))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_NOT_FOUND"`)
	assert.Contains(t, rec.Body.String(), "no frame for GME")
	assert.NotContains(t, rec.Body.String(), "cache miss")

	c, rec = newContext(http.MethodGet, "/", "")
	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestQueryTimeRange(t *testing.T) {
	c, _ := newContext(http.MethodGet, "/?from=2024-01-01T00:00:00Z&to=2024-01-02", "")
	rng, ok := QueryTimeRange(c, time.Hour)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), rng.From)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), rng.To)

	c, _ = newContext(http.MethodGet, "/", "")
	rng, ok = QueryTimeRange(c, time.Hour)
	require.True(t, ok)
	assert.InDelta(t, time.Hour.Seconds(), rng.To.Sub(rng.From).Seconds(), 1)

	c, _ = newContext(http.MethodGet, "/?from=2024-01-02&to=2024-01-01", "")
	_, ok = QueryTimeRange(c, time.Hour)
	assert.False(t, ok)

	c, _ = newContext(http.MethodGet, "/?from=soon", "")
	_, ok = QueryTimeRange(c, time.Hour)
	assert.False(t, ok)

	c, _ = newContext(http.MethodGet, "/?limit=25", "")
	assert.Equal(t, 25, QueryInt(c, "limit", 100))
	assert.Equal(t, 100, QueryInt(c, "missing", 100))
}

func TestServerHealthAndMetrics(t *testing.T) {
	srv := NewServer(nil,
		WithHealthCheck("clickhouse", func(context.Context) error { return nil }),
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientSendAndParse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/comments/abc":
			assert.Equal(t, "2", r.URL.Query().Get("page"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"items":["x","y"]}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	}))
	defer ts.Close()

	client := NewClient(WithBaseURL(ts.URL), WithTimeout(time.Second))

	var out struct {
		Items []string `json:"items"`
	}
	err := client.SendAndParse(context.Background(), &RequestOptions{
		URL:         "comments/abc",
		QueryParams: map[string][]string{"page": {"2"}},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, out.Items)

	err = client.SendAndParse(context.Background(), &RequestOptions{URL: "/other"}, nil)
	var se *ResponseError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.True(t, se.Temporary())
	assert.Equal(t, "upstream down", se.Body)
}

func TestRetryAfterHeader(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/", "")
	require.NoError(t, AppErrorResponse(c, TooManyRequestsError("slow down").WithRetryAfter(1500*time.Millisecond)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"code":"ERR_RATE_LIMITED"`)
}

func TestListResponseNilRows(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/", "")
	var rows []string
	require.NoError(t, ListResponse(c, rows))
	assert.Contains(t, rec.Body.String(), `"rows":[]`)
	assert.Contains(t, rec.Body.String(), `"total":0`)
}

func TestStatusErrorCodes(t *testing.T) {
	assert.Equal(t, "ERR_UNAVAILABLE", UnavailableError("x").Code)
	assert.Equal(t, "ERR_HTTP_418", StatusError(http.StatusTeapot, "x").Code)
}

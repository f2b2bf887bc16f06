package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"TickerPulse/internal/domain/models"
	xhttp "TickerPulse/pkg/http"
)

// HTTPCommentExpander loads further comment pages for a document from a
// paging service: GET <base>/documents/<id>/comments?page=N returning
// {"comments": [...], "more": bool}.
type HTTPCommentExpander struct {
	client   *xhttp.Client
	maxPages int
}

func NewHTTPCommentExpander(client *xhttp.Client, maxPages int) *HTTPCommentExpander {
	if maxPages <= 0 {
		maxPages = 1
	}
	return &HTTPCommentExpander{client: client, maxPages: maxPages}
}

type commentPage struct {
	Comments []models.Comment `json:"comments"`
	More     bool             `json:"more"`
}

// Expand returns the comments from every page fetched, up to maxPages. The
// document's own comments are not repeated.
func (e *HTTPCommentExpander) Expand(ctx context.Context, doc *models.Document) ([]models.Comment, error) {
	out := []models.Comment{}
	if !doc.MoreComments {
		return out, nil
	}

	for page := 1; page <= e.maxPages; page++ {
		var p commentPage
		err := e.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         "documents/" + doc.ID + "/comments",
			QueryParams: map[string][]string{"page": {strconv.Itoa(page)}},
		}, &p)
		if err != nil {
			var se *xhttp.ResponseError
			if errors.As(err, &se) && !se.Temporary() {
				return nil, fmt.Errorf("%w: expand %s: %v", models.ErrMalformedInput, doc.ID, err)
			}
			return nil, fmt.Errorf("%w: expand %s: %v", models.ErrTransientSource, doc.ID, err)
		}
		out = append(out, p.Comments...)
		if !p.More {
			break
		}
	}
	return out, nil
}

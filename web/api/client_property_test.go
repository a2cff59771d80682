package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// **Feature: dashboard-client, Property 1: Pagination query passthrough**
// *For any* limit and offset, the request reaching the backend carries exactly
// those values and nothing for parameters left nil.

func TestPaginationQueryPassthrough(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("limit and offset reach the backend, nil params do not", prop.ForAll(
		func(limit, offset int) bool {
			var got url.Values
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query()
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"data":{"items":[]}}`))
			}))
			defer server.Close()

			client, err := NewClient(server.URL)
			if err != nil {
				return false
			}

			var cursor *string
			_, err = Get[json.RawMessage](context.Background(), client, "/api/v1/api_keys", Params{
				"limit":  limit,
				"offset": offset,
				"cursor": cursor,
				"search": nil,
			}, "")
			if err != nil {
				t.Logf("Get failed: %v", err)
				return false
			}

			if got.Get("limit") != itoa(limit) || got.Get("offset") != itoa(offset) {
				t.Logf("query mismatch: %v", got)
				return false
			}
			_, hasCursor := got["cursor"]
			_, hasSearch := got["search"]
			return !hasCursor && !hasSearch
		},
		gen.IntRange(1, 500),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}

// **Feature: dashboard-client, Property 2: Status errors carry the backend status**
// *For any* non-2xx status, the client returns a StatusError with that code and
// the helpers classify it consistently.

func TestStatusErrorClassification(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("non-2xx statuses surface as StatusError", prop.ForAll(
		func(status int) bool {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}))
			defer server.Close()

			client, _ := NewClient(server.URL)
			_, err := Get[json.RawMessage](context.Background(), client, "/api/v1/repos", nil, "tok")
			if err == nil {
				return false
			}

			return StatusCode(err) == status &&
				IsUnauthorized(err) == (status == http.StatusUnauthorized) &&
				IsForbidden(err) == (status == http.StatusForbidden) &&
				IsNotFound(err) == (status == http.StatusNotFound)
		},
		gen.OneConstOf(400, 401, 403, 404, 405, 409, 410, 422, 429, 500, 502, 503, 504),
	))

	properties.TestingRun(t)
}

// **Feature: dashboard-client, Property 3: List envelope order preservation**
// *For any* list of ids under data.items, DecodeList returns them in the same order.

func TestDecodeListPreservesOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	type item struct {
		ID string `json:"id"`
	}

	properties.Property("items come back in server order", prop.ForAll(
		func(ids []string) bool {
			items := make([]item, len(ids))
			for i, id := range ids {
				items[i] = item{ID: id}
			}
			body, _ := json.Marshal(map[string]any{
				"data": map[string]any{"items": items, "total": len(items), "limit": 20, "offset": 0},
			})

			page, err := DecodeList[item](body, "items")
			if err != nil || len(page.Items) != len(ids) || page.Total != len(ids) {
				return false
			}
			for i := range ids {
				if page.Items[i].ID != ids[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.TestingRun(t)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

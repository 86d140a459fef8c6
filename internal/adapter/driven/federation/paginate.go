package federation

import (
	"context"
	"net/url"
	"strconv"
)

// defaultPageSize is the page size requested from paginated endpoints.
const defaultPageSize = 100

// listPaged walks a page-size-bearing endpoint until a page returns fewer
// rows than requested. Pages are fetched sequentially.
func (c *Client) listPaged(ctx context.Context, path string, params url.Values) ([]row, error) {
	var all []row

	for page := 1; ; page++ {
		q := cloneValues(params)
		q.Set("pageSize", strconv.Itoa(c.pageSize))
		q.Set("page", strconv.Itoa(page))

		body, err := c.do(ctx, apiRequest{path: path, query: q})
		if err != nil {
			return nil, err
		}

		rows, err := decodeRows(body)
		if err != nil {
			return nil, err
		}

		all = append(all, rows...)
		if len(rows) < c.pageSize {
			return all, nil
		}
	}
}

// listOnce fetches an endpoint that returns its full result in one call.
func (c *Client) listOnce(ctx context.Context, path string, params url.Values) ([]row, error) {
	body, err := c.do(ctx, apiRequest{path: path, query: params})
	if err != nil {
		return nil, err
	}
	return decodeRows(body)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}

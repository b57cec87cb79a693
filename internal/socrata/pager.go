package socrata

import (
	"context"
)

// Pager walks a query page by page, advancing the offset by the page size
// until the endpoint returns an empty page. Pages are produced lazily so a
// caller can stop early without having fetched the whole result set.
//
// The order key must be stable across calls (created_date ascending for every
// paginated scope) or offset pagination would skip or duplicate rows.
type Pager struct {
	client   *Client
	query    Query
	pages    int
	finished bool
}

// NewPager creates a pager for the given query. Query.Limit is the page size;
// Query.Offset is the starting offset, normally zero.
func NewPager(client *Client, q Query) *Pager {
	return &Pager{client: client, query: q}
}

// Next fetches the next page. It returns a nil slice once the query is
// exhausted; any fetch error is fatal to the whole run and ends iteration.
func (p *Pager) Next(ctx context.Context) ([]Record, error) {
	if p.finished {
		return nil, nil
	}

	records, err := p.client.FetchPage(ctx, p.query)
	if err != nil {
		p.finished = true
		return nil, err
	}

	if len(records) == 0 {
		p.finished = true
		return nil, nil
	}

	p.pages++
	p.query.Offset += p.query.Limit
	return records, nil
}

// Pages returns the number of non-empty pages fetched so far
func (p *Pager) Pages() int {
	return p.pages
}

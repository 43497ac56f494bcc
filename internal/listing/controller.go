package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/mastera/partnerdesk/internal/registry"
)

// ErrPageUnreachable is returned when a page is requested whose cursor is
// not known under the applied filters. Pages must be reached in order.
var ErrPageUnreachable = errors.New("page not reachable from current position")

// PageResult is the live page: its rows, whether a following page exists,
// and the cursor that fetches it.
type PageResult struct {
	Rows        []registry.PartnerRow
	HasNextPage bool
	NextCursor  registry.Cursor
}

// Request is one issued page fetch. It carries everything Fetch needs, so
// Fetch never reads controller state.
type Request struct {
	Seq     uint64
	Page    int
	Cursor  registry.Cursor
	Filters registry.FilterSet
}

// Response is the settled outcome of a Request.
type Response struct {
	Request
	Result PageResult
	Err    error
}

// Controller owns the applied filter snapshot, the page number, the cursor
// cache and the live page. It is not safe for concurrent use.
type Controller struct {
	backend registry.Lister

	filters FilterStore
	applied registry.FilterSet
	page    int
	cursors CursorCache
	result  PageResult

	seq     uint64 // latest issued
	loading bool
	err     error
}

// NewController returns a controller on page 1 with no filters applied.
// Nothing is fetched until Commit, GoToPage or Refresh is called.
func NewController(backend registry.Lister) *Controller {
	return &Controller{
		backend: backend,
		page:    1,
		cursors: NewCursorCache(),
	}
}

// Filters returns the editable filter store.
func (c *Controller) Filters() *FilterStore { return &c.filters }

// Applied returns the filters the live page was requested with.
func (c *Controller) Applied() registry.FilterSet { return c.applied }

// Page returns the current page number, starting at 1.
func (c *Controller) Page() int { return c.page }

// Result returns the live page.
func (c *Controller) Result() PageResult { return c.result }

// HasNextPage reports whether the live page has a successor.
func (c *Controller) HasNextPage() bool { return c.result.HasNextPage }

// Loading reports whether the latest issued request has not settled.
func (c *Controller) Loading() bool { return c.loading }

// Err returns the error from the latest settled request, if it failed.
func (c *Controller) Err() error { return c.err }

// KnownPages returns the highest page reachable directly under the applied
// filters.
func (c *Controller) KnownPages() int { return c.cursors.Known() }

// Cursors returns a copy of the cursor cache, page 1 first.
func (c *Controller) Cursors() []registry.Cursor { return c.cursors.Snapshot() }

// Commit copies the filter store into the applied snapshot, moves to page 1,
// resets the cursor cache and issues a fetch of page 1 with no cursor.
func (c *Controller) Commit() Request {
	c.applied = c.filters.Values()
	c.page = 1
	c.cursors.Reset()
	return c.issue(1, "")
}

// GoToPage issues a fetch of page n under the applied filters. The cursor
// for n must already be known.
func (c *Controller) GoToPage(n int) (Request, error) {
	cursor, ok := c.cursors.CursorFor(n)
	if !ok {
		return Request{}, fmt.Errorf("page %d: %w", n, ErrPageUnreachable)
	}
	return c.issue(n, cursor), nil
}

// Next issues a fetch of the following page. The live page must report a
// successor.
func (c *Controller) Next() (Request, error) {
	if !c.result.HasNextPage {
		return Request{}, fmt.Errorf("page %d: %w", c.page+1, ErrPageUnreachable)
	}
	return c.GoToPage(c.page + 1)
}

// Prev issues a fetch of the preceding page.
func (c *Controller) Prev() (Request, error) {
	if c.page <= 1 {
		return Request{}, fmt.Errorf("page %d: %w", c.page-1, ErrPageUnreachable)
	}
	return c.GoToPage(c.page - 1)
}

// Refresh re-issues the current page with the applied filters.
func (c *Controller) Refresh() Request {
	cursor, ok := c.cursors.CursorFor(c.page)
	if !ok {
		c.page = 1
		cursor = ""
	}
	return c.issue(c.page, cursor)
}

// Reissue issues req's page and cursor again under a fresh sequence number,
// superseding req. It is used when data behind an in-flight request changed.
func (c *Controller) Reissue(req Request) Request {
	return c.issue(req.Page, req.Cursor)
}

func (c *Controller) issue(page int, cursor registry.Cursor) Request {
	c.seq++
	c.loading = true
	return Request{
		Seq:     c.seq,
		Page:    page,
		Cursor:  cursor,
		Filters: c.applied,
	}
}

// Fetch performs the backend call for req and projects the rows. It reads
// no controller state and is safe to call from any goroutine.
func (c *Controller) Fetch(ctx context.Context, req Request) Response {
	return Fetch(ctx, c.backend, req)
}

// Fetch performs the backend call for req against backend.
func Fetch(ctx context.Context, backend registry.Lister, req Request) Response {
	resp := Response{Request: req}
	page, err := backend.ListPartners(ctx, registry.ListRequest{
		Filters: req.Filters,
		Cursor:  req.Cursor,
	})
	if err != nil {
		resp.Err = err
		return resp
	}
	if page == nil {
		resp.Err = errors.New("list partners: empty response")
		return resp
	}
	resp.Result = PageResult{
		Rows:        registry.ProjectAll(page.Items),
		HasNextPage: page.HasNextPage && !page.NextCursor.IsZero(),
		NextCursor:  page.NextCursor,
	}
	return resp
}

// Apply settles resp. Responses to superseded requests are discarded and
// Apply returns false. On success the live page is replaced and the cursor
// for the next page recorded; on failure the live page and cursor cache are
// left as they were and the error is kept for Err.
func (c *Controller) Apply(resp Response) bool {
	if resp.Seq != c.seq {
		return false
	}
	c.loading = false
	if resp.Err != nil {
		c.err = resp.Err
		return true
	}
	c.err = nil
	c.result = resp.Result
	c.page = resp.Page
	c.cursors.Record(resp.Page, resp.Result.NextCursor, resp.Result.HasNextPage)
	return true
}

// Load fetches req and applies the response synchronously. It returns the
// fetch error, if any.
func (c *Controller) Load(ctx context.Context, req Request) error {
	resp := c.Fetch(ctx, req)
	c.Apply(resp)
	return resp.Err
}

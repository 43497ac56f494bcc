package registry

import (
	"context"
	"io"
)

// Backend provides access to the partner registry.
// Implemented over HTTP by remote.Client and in tests by registrytest.MockBackend.
type Backend interface {
	// ListPartners returns one page of partners matching req.Filters,
	// starting at req.Cursor. The page size is fixed (PageSize).
	ListPartners(ctx context.Context, req ListRequest) (*ListPage, error)

	// GetPartner returns the full record for one partner.
	GetPartner(ctx context.Context, id int64) (*RawPartner, error)

	// UploadFile stores the attachment for a partner. replace selects the
	// replace endpoint instead of create.
	UploadFile(ctx context.Context, id int64, name string, content io.Reader, replace bool) error

	// ViewFile returns the stored attachment for a partner.
	ViewFile(ctx context.Context, id int64) (*File, error)
}

// Lister is the subset of Backend the listing controller needs.
type Lister interface {
	ListPartners(ctx context.Context, req ListRequest) (*ListPage, error)
}

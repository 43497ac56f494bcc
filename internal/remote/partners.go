package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/mastera/partnerdesk/internal/registry"
)

const partnersPath = "/api/BusinessPartner"

// listResponse matches the partner listing response format.
type listResponse struct {
	Items       []registry.RawPartner `json:"items"`
	NextCursor  registry.Cursor       `json:"nextCursor"`
	HasNextPage bool                  `json:"hasNextPage"`
}

// ListPartners fetches one page of partners.
func (c *Client) ListPartners(ctx context.Context, req registry.ListRequest) (*registry.ListPage, error) {
	path := partnersPath + "?" + registry.BuildListQuery(req).Encode()
	resp, err := c.doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp)
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decode partners response: %w", err)
	}

	return &registry.ListPage{
		Items:       lr.Items,
		NextCursor:  lr.NextCursor,
		HasNextPage: lr.HasNextPage,
	}, nil
}

// GetPartner fetches the full record for one partner.
func (c *Client) GetPartner(ctx context.Context, id int64) (*registry.RawPartner, error) {
	resp, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("%s/%d", partnersPath, id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp)
	}

	var p registry.RawPartner
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode partner response: %w", err)
	}
	return &p, nil
}

// UploadFile sends content as the partner's attachment in the multipart
// field "file". replace selects PUT (replace) over POST (create). Uploads
// are never retried.
func (c *Client) UploadFile(ctx context.Context, id int64, name string, content io.Reader, replace bool) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(name))))
	h.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	method := http.MethodPost
	if replace {
		method = http.MethodPut
	}
	req, err := c.newRequest(ctx, method, fmt.Sprintf("%s/%d/file", partnersPath, id), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(c.onceClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return handleErrorResponse(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// ViewFile downloads the partner's attachment. A JSON body, even with a
// success status, is treated as the backend's structured error.
func (c *Client) ViewFile(ctx context.Context, id int64) (*registry.File, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("%s/%d/file", partnersPath, id), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf, application/json")

	resp, err := c.do(c.httpClient, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	ctype, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if resp.StatusCode != http.StatusOK || ctype == "application/json" {
		apiErr := handleErrorResponse(resp)
		if e, ok := apiErr.(*registry.APIError); ok && e.Status == http.StatusOK {
			e.Status = http.StatusNotFound
		}
		return nil, apiErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read attachment: %w", registry.ErrTransport, err)
	}

	return &registry.File{
		Name:        attachmentName(resp.Header.Get("Content-Disposition"), id),
		ContentType: ctype,
		Content:     data,
	}, nil
}

// attachmentName returns the filename from a Content-Disposition header, or
// partner-<id>.pdf when there is none.
func attachmentName(disposition string, id int64) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := filepath.Base(params["filename"]); name != "" && name != "." && name != "/" {
			return name
		}
	}
	return fmt.Sprintf("partner-%d.pdf", id)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

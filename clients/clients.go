package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrDecode marks a 2xx response whose body could not be decoded.
var ErrDecode = errors.New("undecodable response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.Status, e.Body)
}

type HTTP struct{ c *http.Client }

func NewHTTP() *HTTP { return NewHTTPTimeout(60 * time.Second) }

func NewHTTPTimeout(d time.Duration) *HTTP {
	if d <= 0 {
		d = 60 * time.Second
	}
	return &HTTP{c: &http.Client{Timeout: d}}
}

// Client exposes the underlying client for SDKs that take an *http.Client.
func (h *HTTP) Client() *http.Client { return h.c }

// PostJSON sends in as a JSON body and decodes a JSON reply into out. A nil
// out discards the body.
func (h *HTTP) PostJSON(ctx context.Context, op, url string, header http.Header, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req, op, out)
}

// form is one multipart request: plain fields plus at most one file.
type form struct {
	fields    map[string]string
	fileField string
	filePath  string
}

func (h *HTTP) postForm(ctx context.Context, op, url string, f form) (*http.Response, error) {
	var b bytes.Buffer
	w := multipart.NewWriter(&b)

	for k, v := range f.fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if f.filePath != "" {
		fw, err := w.CreateFormFile(f.fileField, filepath.Base(f.filePath))
		if err != nil {
			return nil, err
		}
		fd, err := os.Open(f.filePath)
		if err != nil {
			return nil, err
		}
		defer fd.Close()

		if _, err = io.Copy(fw, fd); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &b)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, &StatusError{Op: op, Status: resp.Status, Code: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

func (h *HTTP) do(req *http.Request, op string, out any) error {
	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Op: op, Status: resp.Status, Code: resp.StatusCode, Body: string(body)}
	}
	return decode(resp.Body, op, out)
}

func decode(r io.Reader, op string, out any) error {
	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w: %w", op, ErrDecode, err)
	}
	return nil
}

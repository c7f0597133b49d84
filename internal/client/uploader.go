package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrUnauthorized = errors.New("server rejected the admin credentials")
	ErrRateLimited  = errors.New("upload rate limit exceeded, try again later")
)

// ServerError is an upload failure reported by the server.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

type UploadOptions struct {
	Link         string
	Public       bool
	FilePassword string
}

type UploadResult struct {
	Link    string
	URL     string
	Message string
}

// Uploader posts payloads to a server's /upload endpoint.
type Uploader struct {
	server   *url.URL
	username string
	password string
	client   *http.Client
}

// NewUploader validates the server URL and admin credentials.
func NewUploader(server, username, password string) (*Uploader, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ValidationError{Arg: server, Cause: "server must be an absolute URL"}
	}
	if username == "" || password == "" {
		return nil, &ValidationError{Arg: "--user/--password", Cause: "admin credentials are required"}
	}

	return &Uploader{
		server:   u,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 30 * time.Minute,
			// The server answers with a redirect carrying the outcome.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Upload sends the payload. An idle-expired session is answered with a
// redirect to /logout; the upload is retried once since the next request
// starts a fresh session.
func (u *Uploader) Upload(ctx context.Context, p *Payload, opts UploadOptions) (*UploadResult, error) {
	for attempt := 0; ; attempt++ {
		res, retry, err := u.post(ctx, p, opts)
		if retry && attempt == 0 {
			continue
		}
		if retry {
			return nil, errors.New("server keeps reporting an expired session")
		}
		return res, err
	}
}

func (u *Uploader) post(ctx context.Context, p *Payload, opts UploadOptions) (*UploadResult, bool, error) {
	body, contentType := multipartBody(p, opts)
	defer body.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.server.String()+"/upload", body)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth(u.username, u.password)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusSeeOther, http.StatusFound:
	case http.StatusUnauthorized:
		return nil, false, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, false, ErrRateLimited
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, false, &ServerError{Status: resp.StatusCode, Message: strings.TrimSpace(string(snippet))}
	}

	loc, err := resp.Location()
	if err != nil {
		return nil, false, &ServerError{Status: resp.StatusCode, Message: "redirect without location"}
	}
	if loc.Path == "/logout" {
		return nil, true, nil
	}
	if msg := loc.Query().Get("error"); msg != "" {
		return nil, false, &ServerError{Status: resp.StatusCode, Message: msg}
	}

	link := strings.TrimPrefix(loc.Path, "/file/")
	if link == loc.Path {
		link = opts.Link
	}
	page := *loc
	page.RawQuery = ""
	return &UploadResult{
		Link:    link,
		URL:     page.String(),
		Message: loc.Query().Get("success"),
	}, false, nil
}

// multipartBody streams the form through a pipe so the payload is never
// buffered twice.
func multipartBody(p *Payload, opts UploadOptions) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, p, opts))
	}()

	return pr, mw.FormDataContentType()
}

func writeForm(mw *multipart.Writer, p *Payload, opts UploadOptions) error {
	if err := mw.WriteField("custom_link", opts.Link); err != nil {
		return err
	}
	if opts.Public {
		if err := mw.WriteField("is_public", "true"); err != nil {
			return err
		}
	}
	if opts.FilePassword != "" {
		if err := mw.WriteField("file_password", opts.FilePassword); err != nil {
			return err
		}
	}

	part, err := mw.CreateFormFile("file", p.Filename)
	if err != nil {
		return err
	}
	src, err := p.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}

package tasker

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/chat"
	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/internal/model"
	"github.com/go-resty/resty/v2"
)

const userAgent = "tgdrive"

// URLSource fetches remote files over http(s).
type URLSource struct {
	client *resty.Client
}

func NewURLSource() *URLSource {
	return &URLSource{
		client: resty.New().
			SetHeader("User-Agent", userAgent).
			// a transparently decompressed body has no usable length
			SetHeader("Accept-Encoding", "identity").
			SetTimeout(0).
			SetRetryCount(0),
	}
}

// RemoteFile is what a HEAD request tells about a url.
type RemoteFile struct {
	URL      string
	Filename string
	Size     int64
}

// Head resolves the name and size of rawURL without downloading it. A
// response without Content-Length is rejected.
func (s *URLSource) Head(ctx context.Context, rawURL string) (*RemoteFile, error) {
	res, err := s.client.R().
		SetContext(ctx).
		Head(rawURL)
	if err != nil {
		return nil, errs.NewTransfer(err, "failed send head request for %s", rawURL)
	}
	if res.IsError() {
		return nil, errs.NewTransfer(nil, "head request for %s answered %s", rawURL, res.Status())
	}
	size, err := contentLength(res.RawResponse)
	if err != nil {
		return nil, err
	}
	return &RemoteFile{
		URL:      rawURL,
		Filename: remoteFilename(rawURL, res.Header()),
		Size:     size,
	}, nil
}

// Open streams rawURL from offset. The server must announce exactly
// expected remaining bytes.
func (s *URLSource) Open(ctx context.Context, rawURL string, offset, expected int64) (io.ReadCloser, error) {
	req := s.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if offset > 0 {
		req.SetHeader("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	res, err := req.Get(rawURL)
	if err != nil {
		return nil, errs.NewTransfer(err, "failed send get request for %s", rawURL)
	}
	body := res.RawBody()
	wantStatus := http.StatusOK
	if offset > 0 {
		wantStatus = http.StatusPartialContent
	}
	if res.StatusCode() != wantStatus {
		_ = body.Close()
		return nil, errs.NewTransfer(nil, "get %s from byte %d answered %s", rawURL, offset, res.Status())
	}
	size, err := contentLength(res.RawResponse)
	if err != nil {
		_ = body.Close()
		return nil, err
	}
	if size != expected {
		_ = body.Close()
		return nil, errs.NewTransfer(nil, "get %s from byte %d returned %d bytes, want %d", rawURL, offset, size, expected)
	}
	return body, nil
}

func contentLength(res *http.Response) (int64, error) {
	raw := res.Header.Get("Content-Length")
	if raw == "" && res.ContentLength < 0 {
		return 0, errs.NewTransfer(nil, "Content-Length not found in response headers, status %s", res.Status)
	}
	if res.ContentLength < 0 {
		return 0, errs.NewTransfer(nil, "failed parse Content-Length %q", raw)
	}
	return res.ContentLength, nil
}

// remoteFilename prefers Content-Disposition and falls back to the last
// element of the url path.
func remoteFilename(rawURL string, header http.Header) string {
	if cd := header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := path.Base(params["filename"]); params["filename"] != "" && name != "/" && name != "." {
				return name
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		name := path.Base(u.Path)
		if name != "/" && name != "." && name != "" {
			if unescaped, err := url.PathUnescape(name); err == nil {
				name = unescaped
			}
			return name
		}
		if u.Host != "" {
			return u.Host
		}
	}
	return fmt.Sprintf("download_%d", time.Now().Unix())
}

// openSource opens the byte stream behind t at its current length.
func (d *Driver) openSource(ctx context.Context, t *model.Task) (io.ReadCloser, error) {
	remaining := t.TotalLength - t.CurrentLength
	switch t.CmdType {
	case model.CmdURL:
		if t.URL == nil || strings.TrimSpace(*t.URL) == "" {
			return nil, errs.NewTransfer(nil, "url task %d has no url", t.ID)
		}
		return d.urls.Open(ctx, *t.URL, t.CurrentLength, remaining)
	default:
		ref := chat.Ref{ChatHex: t.ChatUserHex, MessageID: t.MessageID}
		if t.ChatOriginHex != nil && t.MessageIDOrigin != nil {
			ref = chat.Ref{ChatHex: *t.ChatOriginHex, MessageID: *t.MessageIDOrigin}
		} else if t.MessageIDForward != nil {
			ref.MessageID = *t.MessageIDForward
		}
		rc, err := d.media.Open(ctx, ref, t.CurrentLength)
		if err != nil {
			return nil, errs.NewTransfer(err, "failed open media of message %d", ref.MessageID)
		}
		return rc, nil
	}
}

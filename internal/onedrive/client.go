package onedrive

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/OpenListTeam/tgdrive/pkg/utils"
	"github.com/go-resty/resty/v2"
)

const userAgent = "tgdrive"

// Client is an immutable Graph handle bound to one access token. The manager
// replaces it as a whole whenever the token changes.
type Client struct {
	accessToken string
	api         *resty.Client
	upload      *resty.Client
}

func newRestyClient() *resty.Client {
	c := resty.New().
		SetHeader("User-Agent", userAgent).
		SetTimeout(5 * time.Minute)
	c.JSONMarshal = utils.Json.Marshal
	c.JSONUnmarshal = utils.Json.Unmarshal
	return c
}

func NewClient(graphURL, accessToken string) *Client {
	api := newRestyClient().SetBaseURL(graphURL)
	if accessToken != "" {
		api.SetAuthToken(accessToken)
	}
	return &Client{
		accessToken: accessToken,
		api:         api,
		// upload URLs are pre-authenticated and must not carry the bearer token
		upload: newRestyClient(),
	}
}

func (c *Client) Authenticated() bool {
	return c.accessToken != ""
}

type ReqCallback func(req *resty.Request)

func (c *Client) request(ctx context.Context, pathname, method string, callback ReqCallback, resp interface{}) ([]byte, error) {
	req := c.api.R().SetContext(ctx)
	if callback != nil {
		callback(req)
	}
	if resp != nil {
		req.SetResult(resp)
	}
	var e graphError
	req.SetError(&e)
	res, err := req.Execute(method, pathname)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &APIError{Status: res.StatusCode(), Code: e.Error.Code, Message: e.Error.Message}
	}
	return res.Body(), nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if _, err := c.request(ctx, "/me", http.MethodGet, nil, &u); err != nil {
		return nil, err
	}
	if u.Username() == "" {
		return nil, errs.NewProtocol(nil, "graph /me returned no user name")
	}
	return &u, nil
}

func (c *Client) GetDrive(ctx context.Context) (*Drive, error) {
	var d Drive
	if _, err := c.request(ctx, "/me/drive", http.MethodGet, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateUploadSession opens a resumable upload slot for rootPath/filename.
// Name clashes are resolved by the drive renaming the new item.
func (c *Client) CreateUploadSession(ctx context.Context, rootPath, filename string) (*UploadSession, *UploadSessionMeta, error) {
	fullPath := utils.FixAndCleanPath(rootPath + "/" + filename)
	pathname := fmt.Sprintf("/me/drive/root:%s:/createUploadSession", utils.EncodePath(fullPath))
	var resp uploadSessionResp
	_, err := c.request(ctx, pathname, http.MethodPost, func(req *resty.Request) {
		req.SetBody(map[string]interface{}{
			"item": map[string]interface{}{
				"@microsoft.graph.conflictBehavior": "rename",
			},
		})
	}, &resp)
	if err != nil {
		return nil, nil, err
	}
	if resp.UploadURL == "" {
		return nil, nil, errs.NewProtocol(nil, "upload session for %s has no upload url", fullPath)
	}
	ranges, err := parseRanges(resp.NextExpectedRanges)
	if err != nil {
		return nil, nil, err
	}
	return &UploadSession{uploadURL: resp.UploadURL},
		&UploadSessionMeta{ExpirationDateTime: resp.ExpirationDateTime, NextExpectedRanges: ranges},
		nil
}

// UploadChunk PUTs data as bytes [offset, offset+len(data)) of a total-byte
// upload. Item is set once the drive has received the last byte.
func (c *Client) UploadChunk(ctx context.Context, uploadURL string, data []byte, offset, total int64) (*ChunkResult, error) {
	end := offset + int64(len(data)) - 1
	var (
		session uploadSessionResp
		e       graphError
	)
	res, err := c.upload.R().
		SetContext(ctx).
		SetHeader("Content-Range", fmt.Sprintf("bytes %d-%d/%d", offset, end, total)).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		SetError(&e).
		Put(uploadURL)
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, &APIError{Status: res.StatusCode(), Code: e.Error.Code, Message: e.Error.Message}
	}
	if res.StatusCode() == http.StatusAccepted {
		if err := utils.Json.Unmarshal(res.Body(), &session); err != nil {
			return nil, errs.NewProtocol(err, "failed decode upload session response")
		}
		ranges, err := parseRanges(session.NextExpectedRanges)
		if err != nil {
			return nil, err
		}
		return &ChunkResult{NextExpectedRanges: ranges}, nil
	}
	var item DriveItem
	if err := utils.Json.Unmarshal(res.Body(), &item); err != nil {
		return nil, errs.NewProtocol(err, "failed decode uploaded item")
	}
	return &ChunkResult{Item: &item}, nil
}

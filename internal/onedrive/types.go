package onedrive

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/OpenListTeam/tgdrive/internal/errs"
	"github.com/pkg/errors"
)

type User struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func (u *User) Username() string {
	if u.UserPrincipalName != "" {
		return u.UserPrincipalName
	}
	return u.Mail
}

type Drive struct {
	ID        string `json:"id"`
	DriveType string `json:"driveType"`
}

type DriveItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type uploadSessionResp struct {
	UploadURL          string    `json:"uploadUrl"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
	NextExpectedRanges []string  `json:"nextExpectedRanges"`
}

type graphError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// APIError is a non-2xx answer from Graph or an upload URL.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" && e.Message == "" {
		return fmt.Sprintf("http status %d", e.Status)
	}
	return fmt.Sprintf("http status %d: %s: %s", e.Status, e.Code, e.Message)
}

func IsUnauthorized(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}

// ByteRange is an inclusive range; End is -1 when open ended.
type ByteRange struct {
	Start int64
	End   int64
}

func parseRanges(raw []string) ([]ByteRange, error) {
	ranges := make([]ByteRange, 0, len(raw))
	var prevEnd int64 = -1
	for _, r := range raw {
		br, err := parseRange(r)
		if err != nil {
			return nil, err
		}
		if br.Start <= prevEnd || (len(ranges) > 0 && ranges[len(ranges)-1].End == -1) {
			return nil, errs.NewProtocol(nil, "expected ranges are not ascending: %v", raw)
		}
		prevEnd = br.End
		ranges = append(ranges, br)
	}
	return ranges, nil
}

func parseRange(s string) (ByteRange, error) {
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return ByteRange{}, errs.NewProtocol(nil, "malformed byte range %q", s)
	}
	br := ByteRange{End: -1}
	var err error
	if br.Start, err = strconv.ParseInt(start, 10, 64); err != nil || br.Start < 0 {
		return ByteRange{}, errs.NewProtocol(err, "malformed byte range %q", s)
	}
	if end != "" {
		if br.End, err = strconv.ParseInt(end, 10, 64); err != nil || br.End < br.Start {
			return ByteRange{}, errs.NewProtocol(err, "malformed byte range %q", s)
		}
	}
	return br, nil
}

// client/client.go
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	vcserr "myvcs/internal/errors"
	"myvcs/shared/types"

	"github.com/klauspost/compress/zstd"
)

// Client talks to a myvcs daemon. Failed calls return *errors.Error values
// carrying the daemon's error type.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

func (c *Client) Add(path string) (*types.AddResponse, error) {
	var out types.AddResponse
	if err := c.do(http.MethodPost, "/api/add", types.AddRequest{Path: path}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Commit(message string) (*types.CommitResponse, error) {
	var out types.CommitResponse
	if err := c.do(http.MethodPost, "/api/commit", types.CommitRequest{Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBranch(name string) (*types.BranchResponse, error) {
	var out types.BranchResponse
	if err := c.do(http.MethodPost, "/api/branches", types.BranchRequest{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Branches() (*types.BranchesResponse, error) {
	var out types.BranchesResponse
	if err := c.do(http.MethodGet, "/api/branches", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SwitchBranch checks out a branch.
func (c *Client) SwitchBranch(name string) (*types.CheckoutResponse, error) {
	return c.checkout(types.CheckoutRequest{Branch: name})
}

// Detach checks out a commit and detaches HEAD.
func (c *Client) Detach(commit string) (*types.CheckoutResponse, error) {
	return c.checkout(types.CheckoutRequest{Commit: commit})
}

func (c *Client) checkout(req types.CheckoutRequest) (*types.CheckoutResponse, error) {
	var out types.CheckoutResponse
	if err := c.do(http.MethodPost, "/api/checkout", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Status() (*types.StatusResponse, error) {
	var out types.StatusResponse
	if err := c.do(http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Head() (*types.HeadResponse, error) {
	var out types.HeadResponse
	if err := c.do(http.MethodGet, "/api/head", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Log(ref string, limit int) ([]types.LogEntry, error) {
	q := url.Values{}
	if ref != "" {
		q.Set("ref", ref)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/log"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out types.LogResponse
	if err := c.do(http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) LogEntry(id string) (*types.LogEntry, error) {
	var out types.LogEntry
	if err := c.do(http.MethodGet, "/api/log/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept-Encoding", "zstd")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading body: %w", method, path, err)
	}
	if strings.Contains(resp.Header.Get("Content-Encoding"), "zstd") {
		if payload, err = decodeZstd(payload); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e types.ErrorResponse
		if err := json.Unmarshal(payload, &e); err != nil || e.Type == "" {
			return fmt.Errorf("unexpected status: %s", resp.Status)
		}
		return &vcserr.Error{
			Type:    vcserr.ErrorType(e.Type),
			Message: e.Message,
			Code:    resp.StatusCode,
		}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

func decodeZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

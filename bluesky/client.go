// Package bluesky is a minimal AT Protocol client for publishing image
// posts to a PDS.
package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultPDS = "https://bsky.social"

type Client struct {
	pds        string
	httpClient *http.Client

	// populated after Login
	accessJwt string
	did       string
	handle    string
}

// NewClient creates a new AT Protocol API client. If pds is empty, it
// defaults to https://bsky.social.
func NewClient(pds string) *Client {
	return NewClientWithHTTP(pds, &http.Client{Timeout: 30 * time.Second})
}

func NewClientWithHTTP(pds string, httpClient *http.Client) *Client {
	if pds == "" {
		pds = defaultPDS
	}
	return &Client{
		pds:        pds,
		httpClient: httpClient,
	}
}

// Login authenticates with the PDS and stores the session token. Use an
// App Password, not the account password.
func (c *Client) Login(ctx context.Context, identifier, password string) error {
	body := map[string]string{
		"identifier": identifier,
		"password":   password,
	}

	var resp createSessionResponse
	if err := c.post(ctx, "/xrpc/com.atproto.server.createSession", body, &resp); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	c.accessJwt = resp.AccessJwt
	c.did = resp.DID
	c.handle = resp.Handle
	if c.handle == "" {
		c.handle = identifier
	}
	return nil
}

// DID returns the authenticated user's DID. Only valid after Login.
func (c *Client) DID() string {
	return c.did
}

// Handle returns the authenticated user's handle. Only valid after Login.
func (c *Client) Handle() string {
	return c.handle
}

// BlobRef represents an AT Protocol blob reference for uploaded content.
type BlobRef struct {
	Type string `json:"$type"`
	Ref  struct {
		Link string `json:"$link"`
	} `json:"ref"`
	MimeType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// AspectRatio is reported alongside an embedded image so that clients
// can lay out the post before loading the blob.
type AspectRatio struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Image is one image attached to a post.
type Image struct {
	Alt         string       `json:"alt"`
	Blob        *BlobRef     `json:"image"`
	AspectRatio *AspectRatio `json:"aspectRatio,omitempty"`
}

type imagesEmbed struct {
	Type   string  `json:"$type"`
	Images []Image `json:"images"`
}

type postRecord struct {
	Type      string       `json:"$type"`
	Text      string       `json:"text"`
	CreatedAt string       `json:"createdAt"`
	Embed     *imagesEmbed `json:"embed,omitempty"`
}

// PostRef identifies a published post.
type PostRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// RKey returns the record key, the last path element of the AT URI.
func (r PostRef) RKey() string {
	idx := strings.LastIndex(r.URI, "/")
	if idx < 0 {
		return r.URI
	}
	return r.URI[idx+1:]
}

// WebLink returns the public bsky.app URL of the post for the given
// handle.
func (r PostRef) WebLink(handle string) string {
	if r.URI == "" {
		return ""
	}
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, r.RKey())
}

// UploadBlob uploads raw image bytes as a blob and returns a reference.
// The blob is garbage-collected by the PDS if not referenced in a
// record within a time window.
func (c *Client) UploadBlob(ctx context.Context, data []byte, mimeType string) (*BlobRef, error) {
	if c.accessJwt == "" {
		return nil, ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pds+"/xrpc/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)
	req.Header.Set("Authorization", "Bearer "+c.accessJwt)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result uploadBlobResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &result.Blob, nil
}

// Publish creates an app.bsky.feed.post record with the given text and
// images in the authenticated user's repo.
func (c *Client) Publish(ctx context.Context, text string, images []Image) (PostRef, error) {
	if c.accessJwt == "" {
		return PostRef{}, ErrNotAuthenticated
	}

	record := postRecord{
		Type:      "app.bsky.feed.post",
		Text:      text,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if len(images) > 0 {
		record.Embed = &imagesEmbed{
			Type:   "app.bsky.embed.images",
			Images: images,
		}
	}

	body := createRecordRequest{
		Repo:       c.did,
		Collection: "app.bsky.feed.post",
		Record:     record,
	}

	var resp PostRef
	if err := c.post(ctx, "/xrpc/com.atproto.repo.createRecord", body, &resp); err != nil {
		return PostRef{}, fmt.Errorf("create record: %w", err)
	}
	return resp, nil
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pds+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.accessJwt != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

type createSessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	DID       string `json:"did"`
	Handle    string `json:"handle"`
}

type createRecordRequest struct {
	Repo       string `json:"repo"`
	Collection string `json:"collection"`
	Record     any    `json:"record"`
}

type uploadBlobResponse struct {
	Blob BlobRef `json:"blob"`
}

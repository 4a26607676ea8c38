// Package client talks to the OutfitLens HTTP API. It satisfies the wizard
// collaborator interfaces so the controller can run against a live server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"outfitlens/internal/domain"
	"outfitlens/internal/wizard"
)

// ErrNotAuthenticated is returned by calls that need a session before Login.
var ErrNotAuthenticated = errors.New("client: not authenticated")

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: http %d", e.Status)
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	// Locale is sent as X-Locale so server messages come back translated.
	Locale string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	locale     string

	mu     sync.RWMutex
	tokens domain.AuthTokens
}

func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "http://localhost:8080"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{httpClient: httpClient, baseURL: base, locale: opts.Locale}
}

// Session returns the tokens from the last successful login.
func (c *Client) Session() domain.AuthTokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// SetSession restores a previously obtained session.
func (c *Client) SetSession(tokens domain.AuthTokens) {
	c.mu.Lock()
	c.tokens = tokens
	c.mu.Unlock()
}

func (c *Client) Register(ctx context.Context, email, password, fullName string) (domain.AuthTokens, error) {
	body := map[string]string{"email": email, "password": password, "full_name": fullName}
	return c.authenticate(ctx, "/api/v1/auth/register", body)
}

func (c *Client) Login(ctx context.Context, email, password string) (domain.AuthTokens, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/api/v1/auth/login", body)
}

// Refresh exchanges the stored refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) (domain.AuthTokens, error) {
	refresh := c.Session().RefreshToken
	if refresh == "" {
		return domain.AuthTokens{}, ErrNotAuthenticated
	}
	return c.authenticate(ctx, "/api/v1/auth/refresh", map[string]string{"refresh_token": refresh})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (domain.AuthTokens, error) {
	var tokens domain.AuthTokens
	if err := c.doJSON(ctx, http.MethodPost, path, body, &tokens, false); err != nil {
		return domain.AuthTokens{}, err
	}
	c.SetSession(tokens)
	return tokens, nil
}

func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var user domain.User
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/users/me", nil, &user, true)
	return user, err
}

func (c *Client) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/stats", nil, &stats, true)
	return stats, err
}

// UploadImage posts file as multipart form data to the upload endpoint of imageType.
func (c *Client) UploadImage(ctx context.Context, file wizard.File, imageType domain.ImageType) (domain.Image, error) {
	var endpoint string
	switch imageType {
	case domain.ImageTypeSubject:
		endpoint = "/api/v1/images/upload/user-photo"
	case domain.ImageTypeGarment:
		endpoint = "/api/v1/images/upload/clothing-photo"
	default:
		return domain.Image{}, fmt.Errorf("client: cannot upload %q images", imageType)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	name := filepath.Base(file.Name)
	if name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return domain.Image{}, err
	}
	if _, err := part.Write(file.Data); err != nil {
		return domain.Image{}, err
	}
	if err := form.Close(); err != nil {
		return domain.Image{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, &buf, true)
	if err != nil {
		return domain.Image{}, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	var img domain.Image
	if err := c.do(req, &img); err != nil {
		return domain.Image{}, err
	}
	return img, nil
}

// ListImages returns one page of the caller's images, optionally filtered by type.
func (c *Client) ListImages(ctx context.Context, imageType domain.ImageType, page domain.PageRequest) (domain.Page[domain.Image], error) {
	q := pageQuery(page)
	if imageType != "" {
		q.Set("image_type", string(imageType))
	}
	var out domain.Page[domain.Image]
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/images?"+q.Encode(), nil, &out, true)
	return out, err
}

func (c *Client) DeleteImage(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/images/"+url.PathEscape(id), nil, nil, true)
}

func (c *Client) CreateGenerationJob(ctx context.Context, subjectImageID, garmentImageID string) (domain.JobTicket, error) {
	body := map[string]string{"user_photo_id": subjectImageID, "clothing_photo_id": garmentImageID}
	var ticket domain.JobTicket
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/generations", body, &ticket, true); err != nil {
		return domain.JobTicket{}, err
	}
	if ticket.ID == "" {
		return domain.JobTicket{}, errors.New("client: job created without an id")
	}
	return ticket, nil
}

func (c *Client) GetJobStatus(ctx context.Context, jobID string) (domain.JobStatusReport, error) {
	var report domain.JobStatusReport
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/generations/"+url.PathEscape(jobID)+"/status", nil, &report, true)
	return report, err
}

func (c *Client) History(ctx context.Context, page domain.PageRequest) (domain.Page[domain.Generation], error) {
	var out domain.Page[domain.Generation]
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/generations?"+pageQuery(page).Encode(), nil, &out, true)
	return out, err
}

// Download fetches the zip bundle of a generation.
func (c *Client) Download(ctx context.Context, jobID string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/generations/"+url.PathEscape(jobID)+"/download", nil, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.decodeError(req, resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := c.newRequest(ctx, method, path, reader, authed)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, authed bool) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.locale != "" {
		req.Header.Set("X-Locale", c.locale)
	}
	if authed {
		token := c.Session().AccessToken
		if token == "" {
			return nil, ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return c.decodeError(req, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

// decodeError builds an APIError. A 401 on an authenticated call means the
// session is no longer valid, so it is dropped.
func (c *Client) decodeError(req *http.Request, resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized && req.Header.Get("Authorization") != "" {
		c.SetSession(domain.AuthTokens{})
	}
	apiErr := &APIError{Status: resp.StatusCode}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
	apiErr.Status = resp.StatusCode
	return apiErr
}

func pageQuery(page domain.PageRequest) url.Values {
	page = page.Normalize()
	q := url.Values{}
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("page_size", strconv.Itoa(page.PageSize))
	return q
}

var (
	_ wizard.Uploader          = (*Client)(nil)
	_ wizard.GenerationService = (*Client)(nil)
)

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/pixelvault/internal/client/models"
	"github.com/dmitrijs2005/pixelvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sethvargo/go-retry"
)

// remote catalog wire statuses
const (
	remoteStatusExists  = "exists"
	remoteStatusTrashed = "trashed"
	remoteStatusDeleted = "deleted"
)

// mediaJSON is the catalog's wire representation of a media record.
type mediaJSON struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	TakenAt         time.Time `json:"takenAt"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	Size            int64     `json:"size"`
	Type            string    `json:"type"`
	ItemType        string    `json:"itemType"`
	UserID          string    `json:"userId"`
	DeviceID        string    `json:"deviceId"`
	Hash            string    `json:"hash"`
	Status          string    `json:"status"`
	PreviewID       string    `json:"previewId"`
	FileID          string    `json:"fileId"`
	StatusChangedAt time.Time `json:"statusChangedAt"`
}

func (m mediaJSON) toModel() models.MediaRecord {
	status := models.StatusSynced
	if m.Status == remoteStatusTrashed || m.Status == remoteStatusDeleted {
		status = models.StatusTrashed
	}
	return models.MediaRecord{
		ID:              m.ID,
		Name:            m.Name,
		TakenAt:         m.TakenAt.UTC(),
		Width:           m.Width,
		Height:          m.Height,
		SizeBytes:       m.Size,
		Format:          m.Type,
		ItemType:        models.ItemType(m.ItemType),
		OwnerID:         m.UserID,
		DeviceID:        m.DeviceID,
		ContentHash:     m.Hash,
		Status:          status,
		PreviewID:       m.PreviewID,
		ContentID:       m.FileID,
		StatusChangedAt: m.StatusChangedAt.UTC(),
	}
}

// HTTPClient talks JSON over HTTP to the photo catalog. Transient failures
// (connection errors, 5xx) are retried with exponential backoff before being
// surfaced as transfer errors.
type HTTPClient struct {
	baseURL     string
	httpClient  *http.Client
	accessToken string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SetAccessToken installs the bearer token used on subsequent requests.
func (c *HTTPClient) SetAccessToken(token string) {
	c.accessToken = token
}

func (c *HTTPClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// checkToken rejects requests early when the access token is already expired,
// without a network round trip. The signature is not verified here; the
// catalog remains the authority.
func (c *HTTPClient) checkToken() error {
	if c.accessToken == "" {
		return fmt.Errorf("%w: no access token", common.ErrPrecondition)
	}
	token, _, err := jwt.NewParser().ParseUnverified(c.accessToken, jwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if exp != nil && exp.Before(time.Now()) {
		return common.ErrTokenExpired
	}
	return nil
}

// do executes one request with retry on transient failures and decodes the
// JSON response into out (when out is non-nil).
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := c.checkToken(); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrUnavailable, err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return ErrUnauthorized
		case resp.StatusCode == http.StatusNotFound:
			return common.ErrorNotFound
		case resp.StatusCode >= 500:
			b, _ := io.ReadAll(resp.Body)
			return retry.RetryableError(fmt.Errorf("%w: %s: %s", ErrUnavailable, resp.Status, string(b)))
		case resp.StatusCode >= 400:
			b, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("catalog request failed: %s: %s", resp.Status, string(b))
		}

		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/ping", nil, nil, nil)
}

func (c *HTTPClient) GetChangedSince(ctx context.Context, since time.Time, skip, limit int) ([]models.MediaRecord, int64, error) {
	query := url.Values{}
	if !since.IsZero() {
		query.Set("statusChangedAt", since.UTC().Format(time.RFC3339))
	}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var page struct {
		Results []mediaJSON `json:"results"`
		Count   int64       `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/photos", query, nil, &page); err != nil {
		return nil, 0, fmt.Errorf("%w: list changed: %v", common.ErrTransfer, err)
	}

	records := make([]models.MediaRecord, 0, len(page.Results))
	for _, m := range page.Results {
		records = append(records, m.toModel())
	}
	return records, page.Count, nil
}

func (c *HTTPClient) FindOrCreateMedia(ctx context.Context, data models.CreateMediaData) (*models.MediaRecord, error) {
	body := mediaJSON{
		Name:      data.Name,
		TakenAt:   data.TakenAt.UTC(),
		Width:     data.Width,
		Height:    data.Height,
		Size:      data.SizeBytes,
		Type:      data.Format,
		ItemType:  string(data.ItemType),
		UserID:    data.OwnerID,
		DeviceID:  data.DeviceID,
		Hash:      data.ContentHash,
		PreviewID: data.PreviewID,
		FileID:    data.ContentID,
	}

	var created mediaJSON
	if err := c.do(ctx, http.MethodPost, "/photos", nil, body, &created); err != nil {
		return nil, fmt.Errorf("%w: register media: %v", common.ErrTransfer, err)
	}
	rec := created.toModel()
	return &rec, nil
}

func (c *HTTPClient) DeleteByID(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/photos/"+url.PathEscape(id), nil, nil, nil)
	if err != nil {
		return fmt.Errorf("delete media %s: %w", id, err)
	}
	return nil
}

func (c *HTTPClient) Usage(ctx context.Context) (models.Usage, error) {
	var usage struct {
		UsedBytes  int64 `json:"usedBytes"`
		LimitBytes int64 `json:"limitBytes"`
	}
	if err := c.do(ctx, http.MethodGet, "/usage", nil, nil, &usage); err != nil {
		return models.Usage{}, fmt.Errorf("%w: usage: %v", common.ErrTransfer, err)
	}
	return models.Usage{UsedBytes: usage.UsedBytes, LimitBytes: usage.LimitBytes}, nil
}

package cargoflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const requestTimeout = 30 * time.Second

// Client is the Cargoes Flow REST client
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a new Cargoes Flow client. An empty API key is allowed -
// requests will fail with 401 and the sync service treats that as "sync
// disabled".
func NewClient(baseURL, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		log: log.With().Str("client", "cargoflow").Logger(),
	}
}

// Configured reports whether the client has credentials
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GetTracking fetches the current tracking state for one container
func (c *Client) GetTracking(ctx context.Context, containerNumber string) (*TrackingPayload, error) {
	endpoint := fmt.Sprintf("%s/shipments/%s", c.baseURL, url.PathEscape(containerNumber))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var payload TrackingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse tracking payload: %w", err)
	}
	if payload.ContainerNumber == "" {
		payload.ContainerNumber = containerNumber
	}

	return &payload, nil
}

// GetTrackingBatch fetches tracking state for multiple containers in one call
func (c *Client) GetTrackingBatch(ctx context.Context, containerNumbers []string) ([]TrackingPayload, error) {
	if len(containerNumbers) == 0 {
		return nil, nil
	}

	endpoint := c.baseURL + "/shipments?containerNumbers="
	for i, number := range containerNumbers {
		if i > 0 {
			endpoint += ","
		}
		endpoint += url.QueryEscape(number)
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response struct {
		Shipments []TrackingPayload `json:"shipments"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse tracking batch: %w", err)
	}

	return response.Shipments, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-DPW-ApiKey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cargoflow request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read cargoflow response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Msg("Cargoes Flow returned non-200")
		return nil, fmt.Errorf("cargoflow returned status %d", resp.StatusCode)
	}

	return body, nil
}

package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	platformhttp "emipredict/internal/platform/http"
	"emipredict/models"
)

// Client calls a model-serving endpoint that maps a feature vector to
// a predicted payment delay and an uncertainty estimate. The engine
// treats the model behind the endpoint as opaque.
type Client struct {
	http    *platformhttp.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient creates an inference client with rate limiting
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout:         timeout,
			RequestsPerSec:  5,
			MaxRetryTimeout: timeout,
		}),
		baseURL: baseURL,
		logger:  log.With().Str("component", "oracle_client").Logger(),
	}
}

type predictRequest struct {
	Features models.FeatureVector `json:"features"`
}

type predictResponse struct {
	PredictedDelayDays float64 `json:"predicted_delay_days"`
	Uncertainty        float64 `json:"uncertainty"`
}

// Predict sends the feature vector to the inference service. Any
// transport or decode failure is reported as ErrOracleUnavailable.
func (c *Client) Predict(ctx context.Context, features models.FeatureVector) (float64, float64, error) {
	body, err := json.Marshal(predictRequest{Features: features})
	if err != nil {
		return 0, 0, fmt.Errorf("encoding features: %w", err)
	}

	resp, err := c.http.DoRequest(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Inference request failed")
		return 0, 0, fmt.Errorf("%w: %v", models.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: reading response: %v", models.ErrOracleUnavailable, err)
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		c.logger.Error().Err(err).Str("response", string(raw)).Msg("Error parsing inference response")
		return 0, 0, fmt.Errorf("%w: parsing response: %v", models.ErrOracleUnavailable, err)
	}

	// Uncertainty is non-negative by contract; guard against a
	// misbehaving model server.
	if out.Uncertainty < 0 {
		out.Uncertainty = 0
	}

	c.logger.Debug().
		Float64("delay_days", out.PredictedDelayDays).
		Float64("uncertainty", out.Uncertainty).
		Msg("Inference response")

	return out.PredictedDelayDays, out.Uncertainty, nil
}

// Ready reports whether the model endpoint is loaded and serving.
func (c *Client) Ready(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.HTTPClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Oracle health check failed")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/stitts-dev/feature-engine/internal/features"
)

// StatServerClient reaches the external component evaluator over HTTP.
// The stat server owns the time-window aggregation; this client only
// forwards the contract and propagates missing values as NaN.
type StatServerClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewStatServerClient creates an evaluator client with a request rate
// cap. ratePerSecond bounds outbound evaluation traffic so feature
// resolution bursts do not overwhelm the stat server.
func NewStatServerClient(baseURL string, timeout time.Duration, ratePerSecond int, logger *logrus.Logger) *StatServerClient {
	return &StatServerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond),
		logger:  logger,
	}
}

// evaluateResponse mirrors the stat server's wire format. A null value
// means the component could not be computed for that window.
type evaluateResponse struct {
	Value *float64 `json:"value"`
}

// EvaluateComponent implements features.Evaluator. A missing component
// comes back as NaN, never zero.
func (c *StatServerClient) EvaluateComponent(ctx context.Context, req features.ComponentRequest) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return math.NaN(), fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return math.NaN(), fmt.Errorf("failed to marshal component request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/evaluate", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return math.NaN(), fmt.Errorf("failed to build evaluate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return math.NaN(), fmt.Errorf("stat server request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"feature": req.StatName,
			"window":  req.TimePeriod,
		}).Warn("Stat server returned non-OK status")
		return math.NaN(), fmt.Errorf("stat server returned status %d", resp.StatusCode)
	}

	var decoded evaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return math.NaN(), fmt.Errorf("failed to decode evaluate response: %w", err)
	}

	if decoded.Value == nil {
		return math.NaN(), nil
	}
	return *decoded.Value, nil
}

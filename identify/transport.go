package identify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/c360/cropvision/errors"
)

// Transport performs the outbound identification call. Implementations must
// be safe for concurrent use.
type Transport interface {
	// Identify sends one request and returns the parsed report. Failures
	// come back classified into the pipeline's error taxonomy.
	Identify(ctx context.Context, req *Request) (*Report, error)

	// Ping checks reachability of the remote service without submitting
	// an image.
	Ping(ctx context.Context) error
}

const (
	identifyPath = "/api/v1/identify"
	healthPath   = "/api/v1/health"

	userAgent = "cropvision-client"

	// Cap on error bodies read for classification.
	maxErrorBody = 64 << 10
)

// identifyPayload is the wire format of one identification request.
type identifyPayload struct {
	Image    string `json:"image"`
	CropType string `json:"crop_type,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"additional_info,omitempty"`
}

// HTTPTransport is the production Transport over net/http.
type HTTPTransport struct {
	client        *http.Client
	baseURL       string
	clientVersion string
	logger        *slog.Logger
}

// NewHTTPTransport creates a transport for the service at baseURL. The
// http.Client carries no timeout of its own; deadlines arrive through the
// request context.
func NewHTTPTransport(baseURL, clientVersion string, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTransport{
		client:        &http.Client{},
		baseURL:       baseURL,
		clientVersion: clientVersion,
		logger:        logger,
	}
}

// Identify posts the image and context fields as JSON and classifies the
// response.
func (t *HTTPTransport) Identify(ctx context.Context, req *Request) (*Report, error) {
	payload := identifyPayload{
		Image:    base64.StdEncoding.EncodeToString(req.Image),
		CropType: req.CropType,
		Location: req.Location,
		Notes:    req.Notes,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.WrapUnknown(err, "HTTPTransport", "Identify", "marshal payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+identifyPath, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WrapValidation(err, "HTTPTransport", "Identify", "build request")
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("X-Client-Version", t.clientVersion)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifySendError(err, "Identify")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, t.classifyStatus(resp, requestID)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, errors.WrapUnknown(err, "HTTPTransport", "Identify", "decode response body")
	}

	t.logger.Debug("identification response received",
		"request_id", requestID,
		"matches", len(report.Matches),
		"fallback_mode", report.FallbackMode)

	return &report, nil
}

// Ping issues a bodyless probe against the health endpoint.
func (t *HTTPTransport) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+healthPath, nil)
	if err != nil {
		return errors.WrapValidation(err, "HTTPTransport", "Ping", "build request")
	}
	httpReq.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return classifySendError(err, "Ping")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode >= 500 {
		return errors.WrapServiceUnavailable(errors.ErrServiceDown, "HTTPTransport", "Ping",
			fmt.Sprintf("health probe returned status %d", resp.StatusCode))
	}
	return nil
}

// classifySendError maps a client.Do failure into the taxonomy. Deadline
// expiry is a Timeout; everything else at this layer is a connectivity
// failure.
func classifySendError(err error, method string) error {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.WrapTimeout(err, "HTTPTransport", method, "request deadline exceeded")
	}
	return errors.WrapTransport(errors.ErrNoConnection, "HTTPTransport", method, err.Error())
}

// classifyStatus maps a non-200 response into the taxonomy:
// 429 is RateLimited with the retry-after captured, other 4xx are
// validation failures, 5xx means the service is down.
func (t *HTTPTransport) classifyStatus(resp *http.Response, requestID string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body errorBody
	_ = json.Unmarshal(raw, &body)
	message := body.Message
	if message == "" {
		message = fmt.Sprintf("status %d", resp.StatusCode)
	}

	t.logger.Warn("identification request rejected",
		"request_id", requestID,
		"status", resp.StatusCode,
		"error_type", body.ErrorType)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := retryAfterOf(resp, &body)
		return errors.WrapRateLimited(errors.ErrRateLimited, "HTTPTransport", "Identify", message, retryAfter)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return errors.WrapValidation(errors.ErrInvalidData, "HTTPTransport", "Identify", message)
	case resp.StatusCode >= 500:
		return errors.WrapServiceUnavailable(errors.ErrServiceDown, "HTTPTransport", "Identify", message)
	default:
		return errors.WrapUnknown(fmt.Errorf("unexpected status %d", resp.StatusCode), "HTTPTransport", "Identify", message)
	}
}

// retryAfterOf extracts the cooldown a 429 asks for. The Retry-After header
// takes precedence over the body's retry_after_ms field; zero means the
// response named no interval.
func retryAfterOf(resp *http.Response, body *errorBody) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
		if at, err := http.ParseTime(header); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
	}
	if body.RetryAfterMillis > 0 {
		return time.Duration(body.RetryAfterMillis) * time.Millisecond
	}
	return 0
}

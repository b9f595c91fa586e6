package identify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/cropvision/errors"
)

func TestHTTPTransport_Identify_Success(t *testing.T) {
	var gotPayload identifyPayload
	var gotHeaders http.Header

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, identifyPath, r.URL.Path)
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		_ = json.NewEncoder(w).Encode(Report{
			Matches: []Match{{Name: "Septoria Leaf Spot", Confidence: 0.77, Category: "disease"}},
			Source:  "plant_id",
		})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, "2.3.1", nil)
	report, err := tr.Identify(context.Background(), &Request{
		Image:    []byte{0x01, 0x02, 0x03},
		CropType: "tomato",
		Location: "field-7",
		Notes:    "yellowing lower leaves",
	})
	require.NoError(t, err)
	assert.Equal(t, "Septoria Leaf Spot", report.Matches[0].Name)

	// Payload carries the image base64-encoded plus the context fields.
	image, decodeErr := base64.StdEncoding.DecodeString(gotPayload.Image)
	require.NoError(t, decodeErr)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, image)
	assert.Equal(t, "tomato", gotPayload.CropType)
	assert.Equal(t, "field-7", gotPayload.Location)
	assert.Equal(t, "yellowing lower leaves", gotPayload.Notes)

	// Every request names itself.
	assert.Equal(t, "2.3.1", gotHeaders.Get("X-Client-Version"))
	assert.Equal(t, userAgent, gotHeaders.Get("User-Agent"))
	_, parseErr := uuid.Parse(gotHeaders.Get("X-Request-ID"))
	assert.NoError(t, parseErr)
}

func TestHTTPTransport_Identify_RequestIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get("X-Request-ID")] = true
		_ = json.NewEncoder(w).Encode(Report{})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, "1.0.0", nil)
	for n := 0; n < 3; n++ {
		_, err := tr.Identify(context.Background(), &Request{Image: []byte{0x01}})
		require.NoError(t, err)
	}
	assert.Len(t, seen, 3)
}

func TestHTTPTransport_Identify_Classification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		category errors.Category
	}{
		{
			name:     "bad request is a validation failure",
			status:   http.StatusBadRequest,
			body:     errorBody{ErrorType: "invalid_image", Message: "unsupported image"},
			category: errors.CategoryValidation,
		},
		{
			name:     "unprocessable entity is a validation failure",
			status:   http.StatusUnprocessableEntity,
			body:     errorBody{ErrorType: "validation_error", Message: "image too small"},
			category: errors.CategoryValidation,
		},
		{
			name:     "internal error means service unavailable",
			status:   http.StatusInternalServerError,
			body:     errorBody{ErrorType: "internal", Message: "model crashed"},
			category: errors.CategoryServiceUnavailable,
		},
		{
			name:     "bad gateway means service unavailable",
			status:   http.StatusBadGateway,
			body:     nil,
			category: errors.CategoryServiceUnavailable,
		},
		{
			name:     "too many requests is rate limited",
			status:   http.StatusTooManyRequests,
			body:     errorBody{ErrorType: "rate_limited", Message: "quota exhausted"},
			category: errors.CategoryRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != nil {
					_ = json.NewEncoder(w).Encode(tt.body)
				}
			}))
			defer server.Close()

			tr := NewHTTPTransport(server.URL, "1.0.0", nil)
			_, err := tr.Identify(context.Background(), &Request{Image: []byte{0x01}})
			require.Error(t, err)
			assert.Equal(t, tt.category, errors.CategoryOf(err))
		})
	}
}

func TestHTTPTransport_Identify_RetryAfterHeaderWinsOverBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(errorBody{
			ErrorType:        "rate_limited",
			RetryAfterMillis: 5000,
		})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, "1.0.0", nil)
	_, err := tr.Identify(context.Background(), &Request{Image: []byte{0x01}})
	require.Error(t, err)

	retryAfter, ok := errors.RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, retryAfter)
}

func TestHTTPTransport_Identify_RetryAfterFromBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(errorBody{RetryAfterMillis: 5000})
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, "1.0.0", nil)
	_, err := tr.Identify(context.Background(), &Request{Image: []byte{0x01}})
	require.Error(t, err)

	retryAfter, ok := errors.RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, retryAfter)
}

func TestHTTPTransport_Identify_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	tr := NewHTTPTransport(server.URL, "1.0.0", nil)
	_, err := tr.Identify(ctx, &Request{Image: []byte{0x01}})
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
}

func TestHTTPTransport_Identify_ConnectionRefused(t *testing.T) {
	// Grab a port nothing listens on.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tr := NewHTTPTransport(url, "1.0.0", nil)
	_, err := tr.Identify(context.Background(), &Request{Image: []byte{0x01}})
	require.Error(t, err)
	assert.True(t, errors.IsTransport(err))
}

func TestHTTPTransport_Identify_MalformedSuccessBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{truncated"))
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, "1.0.0", nil)
	_, err := tr.Identify(context.Background(), &Request{Image: []byte{0x01}})
	require.Error(t, err)
	assert.Equal(t, errors.CategoryUnknown, errors.CategoryOf(err))
}

func TestHTTPTransport_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, healthPath, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, "1.0.0", nil)
	assert.NoError(t, tr.Ping(context.Background()))
}

func TestHTTPTransport_Ping_ServerDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	tr := NewHTTPTransport(server.URL, "1.0.0", nil)
	err := tr.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsServiceUnavailable(err))
}

func TestRetryAfterOf_HTTPDate(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Retry-After", time.Now().Add(10*time.Second).UTC().Format(http.TimeFormat))

	d := retryAfterOf(resp, &errorBody{})
	assert.Greater(t, d, 5*time.Second)
	assert.LessOrEqual(t, d, 10*time.Second)
}

func TestRetryAfterOf_Unspecified(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	assert.Zero(t, retryAfterOf(resp, &errorBody{}))
}

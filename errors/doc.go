// Package errors provides standardized error handling patterns for CropVision components.
//
// # Overview
//
// The errors package implements the category taxonomy used across the media
// pipeline: decode and encode failures from the transcoder, and timeout,
// transport, rate-limited, service-unavailable, validation, and unknown
// failures from the request orchestrator. Each error carries exactly one
// category, enabling callers to decide between retrying, surfacing a manual
// retry affordance, or escalating without string matching.
//
// # Error Classification
//
// Errors are classified by type or sentinel:
//
//   - Decode/Encode: deterministic transcoder failures (do not retry)
//   - Timeout: deadline expiry, including context cancellation
//   - Transport: lower-level connectivity failures (dial, DNS, reset)
//   - RateLimited: 429 responses; carry an optional retry-after hint
//   - ServiceUnavailable: 5xx responses from the remote service
//   - Validation: non-429 4xx responses and invalid local input
//   - Unknown: everything else
//
// The classification integrates with Go's standard error handling, supporting
// errors.Is(), errors.As(), and error wrapping chains.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Category-aware wrappers apply this pattern while attaching classification:
//
//	errors.WrapDecode(err, "Transcoder", "Optimize", "decode")
//	errors.WrapTransport(err, "Client", "Identify", "send request")
//	errors.WrapRateLimited(err, "Client", "Identify", "send request", 30*time.Second)
//
// The generic Wrap() function adds context without setting a category:
//
//	errors.Wrap(err, "Component", "Method", "action")
//
// # Retry Decisions
//
// IsRetryable reports whether a later attempt could plausibly succeed. The
// orchestrator itself never retries automatically; the predicate exists for
// callers deciding whether to offer a retry affordance:
//
//	if err := svc.Identify(ctx, req); err != nil {
//	    if errors.IsRateLimited(err) {
//	        if after, ok := errors.RetryAfter(err); ok {
//	            // surface "try again in <after>"
//	        }
//	    } else if errors.IsRetryable(err) {
//	        // offer manual retry
//	    }
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors

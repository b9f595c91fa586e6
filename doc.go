// Package cropvision is the client-side media pipeline for crop pest and
// disease identification from photographs.
//
// The pipeline prepares user-submitted photos for a remote diagnostic
// service and avoids redundant network traffic:
//
//	┌─────────────────────────────────────┐
//	│       identify.Service              │  Orchestration: dedupe,
//	│  (Identify, IdentifyBatch, Status)  │  cooldowns, classification
//	└─────────────────────────────────────┘
//	     ↓ consults            ↓ invokes
//	┌───────────────┐   ┌───────────────────┐
//	│  pkg/cache    │   │ imaging.Transcoder │  Resize, sharpen,
//	│  (TTL + LRU)  │   │ (decode → encode)  │  re-encode
//	└───────────────┘   └───────────────────┘
//	                           ↓ sends via
//	                    ┌───────────────────┐
//	                    │ identify.Transport │  HTTP, 30s timeout,
//	                    │                    │  classified failures
//	                    └───────────────────┘
//
// Requests are deduplicated by a content hash of the original image bytes
// plus the crop-type label, so a repeated photograph is answered from the
// cache without touching the transcoder or the network. Failures surface
// through the errors package taxonomy; the orchestrator never retries on
// its own, but a rate-limited response extends a cooldown shared by all
// subsequent calls.
//
// Supporting packages:
//   - errors: classified error taxonomy shared across the pipeline
//   - metric: Prometheus registry and core pipeline metrics
//   - config: JSON file configuration with env overrides
//   - pkg/blob: blake3 content hashing and cache-key derivation
package cropvision

// Package events defines the typed session event contract and the
// normalizer that produces it from raw transport payloads.
//
// Event kinds are grouped by source-facing namespaces:
//
//   - transcript.*: speech/text fragments from either side of the call
//   - tool.*: structured tool results published by the agent
//   - room.*: room membership signals
//
// Semantics used across the package:
//
//   - Fragment: a finalized utterance piece in arrival order.
//   - Result: a discrete tool outcome, delivered at least once.
//   - Unrecognized: a payload that failed decoding; carries no data and is
//     meant to be dropped by the consumer.
//
// Decoding never panics or returns an error past this boundary: malformed
// bytes, invalid JSON and missing required fields all degrade to
// Unrecognized. Downstream components switch on the event type and never
// re-inspect raw payload shape.
package events

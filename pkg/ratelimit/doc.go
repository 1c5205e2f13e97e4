// Package ratelimit throttles outbound Graph API calls.
//
// The Graph API enforces per-app and per-account call budgets. When
// graph.requests_per_minute is set, every client call first waits on a
// SlidingWindow so a burst of publish attempts (each of which may poll many
// times) stays under the budget instead of failing with a 429.
package ratelimit

// Package services defines the [Catalog] interface the sync engine depends on and implements it for Spotify.
//
// # Spotify Implementation
//
// [SpotifyService] wraps github.com/zmb3/spotify/v2. Requests go through an [oauth2.Transport], which refreshes
// expired tokens, then through a retry transport that waits on a [rate.Limiter] before each attempt.
//
// The retry transport retries 429 responses, 5xx responses and transport errors with exponential backoff,
// honoring Retry-After. Once attempts are exhausted the request fails with [shared.ErrTransient].
//
// # Error Handling
//
// Catalog errors are mapped onto the shared sentinels:
//   - 401 : [shared.ErrTokenExpired]
//   - 403 : [shared.ErrAuthFailed]
//   - 404 : [shared.ErrNotFound]
//   - 429 and 5xx : [shared.ErrTransient]
//   - failed token refresh : [shared.ErrRefreshFailed]
//   - anything else : [shared.ErrAPIRequest]
//
// Authentication errors abort a sync run, the rest only fail the track being processed.
package services

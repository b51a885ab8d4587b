// Package server runs the local HTTP callback used by the Spotify authorization-code flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter, exchanges the authorization code for tokens,
// and sends the result through a channel. It only processes one callback.
//
// # Callback Server
//
// `likesort spotify auth` starts a [CallbackServer] on the configured host and port (127.0.0.1:3000 by default),
// opens the authorization URL in a browser and blocks in [WaitForToken] until the callback arrives, the timeout
// elapses or the context is canceled. The server is shut down afterwards.
package server

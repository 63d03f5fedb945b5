// Package server provides HTTP routing, middleware, and the playlist generation endpoint.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Endpoints
//
// [PlaylistHandler] serves POST /playlist: a multipart image upload runs through
// the full generation chain (vibe extraction, optional retrieval, playlist
// generation, catalog enrichment) and returns the playlist as JSON. Each run is
// persisted to the interaction log when a repository is configured; persistence
// failures are logged, never surfaced.
//
// [HealthHandler] serves GET /healthz for liveness checks.
//
// Error bodies are deliberately generic ({"error": "..."}); operational detail
// stays in the server log.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server

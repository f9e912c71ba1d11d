// Package http provides the gin router, middleware, JSON handlers and
// server-rendered pages of the reservation service.
//
// The JSON API lives under /api:
//   - POST /api/signup, POST /api/sessions, DELETE /api/sessions/current and
//     GET /api/me manage accounts and sessions. A created session is returned
//     in the body, the `X-Session-Token` header and a `session_token` cookie.
//   - GET /api/listings, /api/listings/filter, /api/listings.geojson and
//     /api/listings/{id} browse the catalog. ?kind= selects house (default)
//     or museum. Filtering runs over the caller's last loaded collection.
//   - GET /api/intake, POST /api/reservations and the /api/reservations/draft
//     endpoints take reservations directly or through the staged flow.
//   - /api/admin/listings and /api/admin/reservations are the moderation
//     endpoints and require an administrator session.
//
// Errors use the `errorResponse` body. Validation messages are translated to
// Japanese in responder.go.
//
// The HTML pages (/, /login, /signup, /reservations/*, /admin) render the
// embedded templates under templates/ and accept plain form posts.
package http

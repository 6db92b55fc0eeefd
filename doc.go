// Package auth is the client side of the IslamicMasterclass course
// platform: it keeps the user's session, reads the role out of the bearer
// token, talks to the REST backend and decides where navigation may go.
//
// Sessions:
//   - A Session is an opaque bearer token plus the profile the backend
//     returned with it. It lives in a Storage (memory, JSON file, sqlite via
//     the repository package, or browser cookies in the web package) under
//     fixed keys, see DefaultStorageKeys.
//   - StorageSessions owns the single backup slot used while a parent
//     previews a child account. SessionSwapper drives that flow and refuses
//     a second preview while one is active.
//
// Claims:
//   - DecodeClaims reads the payload segment of a token without verifying
//     anything. Only the backend decides whether a token is valid; decoded
//     claims are used for routing and display.
//
// Guards:
//   - GuardPipeline is an ordered list of steps. The first step that rejects
//     a session decides the redirect. NewRoleGuard always checks for a token
//     before the role, so anonymous users are sent to login and never to the
//     unauthorized page.
//
// Templates:
//   - TemplateHelpers exposes role checks, landing routes and display names
//     to server rendered views.
//
// Activity sinks:
//   - ActivitySink receives login, signup, logout and preview events. Sinks
//     run best-effort (errors are logged) so they never block a session flow.
package auth

// Package api implements the HTTP surface of the gateway.
//
// Operators authenticate against the local user table and receive a short
// lived JWT. Every protected route checks the caller's role against the
// permission table in package auth before touching HikCentral.
//
// # Routes
//
//	GET    /api/v1/health
//	POST   /api/v1/auth/login
//	GET    /api/v1/auth/me
//	GET    /api/v1/persons                       page listing, or ranked search with ?search=
//	POST   /api/v1/persons                       create workflow
//	POST   /api/v1/persons/assign-access-level
//	GET    /api/v1/persons/{code}
//	PUT    /api/v1/persons/{id}                  update workflow
//	POST   /api/v1/persons/{code}/photo
//	GET    /api/v1/access-levels
//	GET    /api/v1/organizations
//	GET    /api/v1/vehicles
//	POST   /api/v1/vehicles/cache/invalidate
//	GET    /api/v1/users, POST /api/v1/users
//	GET    /api/v1/users/{id}, PATCH, DELETE
//	GET    /api/v1/audit-logs
//
// Vendor-backed routes answer with the {message, success, data} envelope.
// Errors use {status, code, message}. A vendor business error is a 400
// carrying the vendor message; a call that never got a well-formed vendor
// reply is a 502.
//
// Person workflows run on a context detached from the request so a client
// disconnect does not leave a half-registered person behind.
package api

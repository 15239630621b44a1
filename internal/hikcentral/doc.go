// Package hikcentral talks to a HikCentral / Artemis access-control
// appliance over its signed OpenAPI.
//
// Every vendor call is a POST carrying a JSON body, signed with
// HMAC-SHA256 over a canonical string built from a fixed set of headers
// and the request path. [Client.Send] performs one signed call and always
// returns a [Response]; transport and decoding failures are folded into
// sentinel codes so callers handle a single shape.
//
// The typed operations (persons, vehicles, access groups, organisations)
// sit on top of Send and convert non-zero vendor codes into *VendorError.
// List operations fetch exactly one page; [Scan] walks every page with a
// bounded worker pool.
package hikcentral

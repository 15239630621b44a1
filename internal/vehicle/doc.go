// Package vehicle keeps a short-lived, process-wide index of vendor
// vehicles keyed by owner name.
//
// The vendor's vehicle list does not carry a usable owner identifier, so
// vehicles are joined to people by display name. That join lives in one
// place, [OwnerKey], so it can be replaced if a stable key becomes
// available.
package vehicle

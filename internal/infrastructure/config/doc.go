// Package config loads hikgate's YAML configuration, applies HIKGATE_*
// environment overrides and validates the result.
//
// Secrets (the HikCentral app secret, the JWT signing secret and the
// bootstrap admin password) are expected from the environment rather than
// the file:
//
//	HIKGATE_HIKCENTRAL_APP_SECRET=...
//	HIKGATE_JWT_SECRET=...
//
// Load reads the file, overlays the environment and reports every invalid
// field in a single error:
//
//	cfg, err := config.Load("configs/config.yaml")
package config

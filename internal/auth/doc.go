// Package auth holds the gateway's own operator accounts: roles, the
// permission table, Argon2id password hashes, HS256 access tokens and the
// SQLite user store.
//
// Accounts here are not vendor persons. They only decide who may call
// which gateway endpoint and which optional workflow steps run.
package auth

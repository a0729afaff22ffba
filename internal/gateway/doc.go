// Package gateway provides token-guarded HTTP access to the external services
// a run talks to on behalf of an owner (Gmail for email, Drive for files).
//
// Tokens are loaded per owner from the token store and refreshed with
// golang.org/x/oauth2; refreshed tokens are written back. Authenticated
// clients are cached on a Session, which a scheduler run acquires at start and
// releases at the end, so no gateway state outlives the run that created it.
package gateway

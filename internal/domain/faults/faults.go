// Package faults defines the error taxonomy shared by all CaseRoom
// components.
//
// Components return these sentinels (usually wrapped with context via
// fmt.Errorf and %w) and propagate lower-level errors unchanged; the
// import workflow is the only place allowed to catch and reclassify a
// component error. HTTP handlers map sentinels to status codes at the
// boundary.
package faults

import "errors"

var (
	// ErrUnauthenticated means no verifiable actor identity was presented.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the actor is known but their role is insufficient.
	// At the room boundary this is collapsed into ErrNotFound for actors
	// with no membership, so room existence is never inferable from an
	// unauthorized probe.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound means the entity is absent, or deliberately
	// indistinguishable from forbidden.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a uniqueness or business-rule violation, such as
	// removing a room's last owner.
	ErrConflict = errors.New("conflict")

	// ErrReauthRequired means the stored credential cannot be recovered
	// without user interaction. It is never retried automatically.
	ErrReauthRequired = errors.New("reauthorization required")

	// ErrStorageFailure means the blob store failed; nothing was persisted.
	ErrStorageFailure = errors.New("storage failure")

	// ErrUpstreamUnavailable means the external file source is unreachable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Package services contains the application services of the havengate
// client: the credential store over the local database, the owner
// coordinator that reserves the global owner slot before committing a local
// owner, the in-process session, the security audit log and the Gate API the
// interactive shell and other collaborators call into.
//
// Operations return (Result, error). Recoverable outcomes (validation,
// conflict, authentication) travel in Result.Kind with an operator-facing
// message; the error return is reserved for conditions that abort the flow
// (storage, registry, token and configuration failures).
package services

// Package registry is the client side of the global owner registry. It asks
// the registry whether an owner already exists, reserves the owner slot
// before a local owner row is committed and releases the slot when that
// commit fails. Without a registry URL it falls back to a signed offline
// owner token (see internal/ownertoken).
package registry

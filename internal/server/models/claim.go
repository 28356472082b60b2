// Package models defines the records of the registry server.
package models

import "time"

// Claim is the holder of the single global owner slot.
type Claim struct {
	ID        string
	InstallID string
	Username  string
	MachineID string
	ClaimedAt time.Time
}

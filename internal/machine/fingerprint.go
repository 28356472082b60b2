// Package machine derives a best-effort per-host fingerprint used to bind the
// owner account to the machine it was created on.
//
// The fingerprint is the hex SHA-256 of host name, OS name, OS release,
// architecture and processor description concatenated in that order. It is
// stable for a host but not globally unique: cloned VMs may collide.
package machine

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
)

// Identity yields the fingerprint of the machine the process runs on.
type Identity interface {
	Fingerprint() string
}

// Attributes are the host properties that feed the fingerprint. Missing
// values stay empty.
type Attributes struct {
	Hostname  string
	OS        string
	Release   string
	Arch      string
	Processor string
}

// Fingerprint hashes the attributes.
func (a Attributes) Fingerprint() string {
	sum := sha256.Sum256([]byte(a.Hostname + a.OS + a.Release + a.Arch + a.Processor))
	return hex.EncodeToString(sum[:])
}

// Collect reads the attributes of the current host.
func Collect() Attributes {
	host, _ := os.Hostname()
	sysname, release, arch := uname()
	return Attributes{
		Hostname:  host,
		OS:        sysname,
		Release:   release,
		Arch:      arch,
		Processor: processor(),
	}
}

// Host is the Identity of the running machine. The fingerprint is computed
// once per process.
type Host struct {
	once sync.Once
	id   string
}

func NewHost() *Host {
	return &Host{}
}

func (h *Host) Fingerprint() string {
	h.once.Do(func() {
		h.id = Collect().Fingerprint()
	})
	return h.id
}

// Static is a fixed fingerprint.
type Static string

func (s Static) Fingerprint() string {
	return string(s)
}

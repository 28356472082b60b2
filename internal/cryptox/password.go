package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Scheme identifies the algorithm a stored password hash was produced with.
type Scheme string

const (
	SchemeArgon2id     Scheme = "argon2id"
	SchemeBcrypt       Scheme = "bcrypt"
	SchemeLegacySHA256 Scheme = "sha256"
	SchemeUnknown      Scheme = "unknown"
)

const (
	argon2Prefix = "$argon2"
	legacyPrefix = "sha256$"

	// Upper bounds for parameters read back from stored hashes.
	maxArgon2Memory      = 1 << 22 // KiB, 4 GiB
	maxArgon2Iterations  = 64
	minArgon2KeyLen      = 16
	maxArgon2SaltOrKeyLn = 1024
)

var errBadArgon2 = errors.New("invalid argon2id hash")

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLen:     16,
		KeyLen:      32,
	}
}

// PasswordHasher hashes new passwords with Argon2id and verifies hashes in
// any of the formats the credential store has ever written:
//
//	$argon2id$v=19$m=65536,t=3,p=4$<salt>$<key>   PHC Argon2id (current)
//	$2a$ / $2b$ / $2y$...                           bcrypt
//	sha256$<salt>$<hex(sha256(salt+password))>      legacy salted SHA-256
//
// Verification never mutates anything; callers decide whether to rehash
// based on NeedsUpgrade.
type PasswordHasher struct {
	params Argon2Params
}

func NewPasswordHasher(p Argon2Params) *PasswordHasher {
	return &PasswordHasher{params: p}
}

// Params returns the parameters new hashes are produced with.
func (h *PasswordHasher) Params() Argon2Params {
	return h.params
}

// Hash returns a PHC-formatted Argon2id string for password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLen)

	enc := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Iterations,
		h.params.Parallelism,
		enc.EncodeToString(salt),
		enc.EncodeToString(key),
	), nil
}

// SchemeOf classifies stored by its prefix.
func SchemeOf(stored string) Scheme {
	switch {
	case strings.HasPrefix(stored, argon2Prefix):
		return SchemeArgon2id
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return SchemeBcrypt
	case strings.HasPrefix(stored, legacyPrefix):
		return SchemeLegacySHA256
	default:
		return SchemeUnknown
	}
}

// Verify reports whether password matches stored. Malformed or unknown
// hashes simply fail to verify.
func (h *PasswordHasher) Verify(password, stored string) bool {
	if stored == "" {
		return false
	}
	switch SchemeOf(stored) {
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	case SchemeLegacySHA256:
		return verifyLegacySHA256(password, stored)
	default:
		// Argon2id and anything unrecognised.
		return verifyArgon2id(password, stored)
	}
}

// NeedsUpgrade is true for any non-Argon2id hash and for Argon2id hashes
// whose cost parameters differ from the current ones.
func (h *PasswordHasher) NeedsUpgrade(stored string) bool {
	if SchemeOf(stored) != SchemeArgon2id {
		return true
	}
	p, salt, key, err := parseArgon2id(stored)
	if err != nil {
		return true
	}
	return p.Memory != h.params.Memory ||
		p.Iterations != h.params.Iterations ||
		p.Parallelism != h.params.Parallelism ||
		uint32(len(salt)) != h.params.SaltLen ||
		uint32(len(key)) != h.params.KeyLen
}

func verifyLegacySHA256(password, stored string) bool {
	parts := strings.SplitN(stored, "$", 3)
	if len(parts) != 3 {
		return false
	}
	salt, digest := parts[1], parts[2]
	sum := sha256.Sum256([]byte(salt + password))
	check := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(check), []byte(strings.ToLower(digest))) == 1
}

func verifyArgon2id(password, stored string) bool {
	p, salt, want, err := parseArgon2id(stored)
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}

func parseArgon2id(s string) (Argon2Params, []byte, []byte, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(s, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, errBadArgon2
	}

	ver, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || ver != argon2.Version {
		return Argon2Params{}, nil, nil, errBadArgon2
	}

	var p Argon2Params
	for _, kv := range strings.Split(parts[3], ",") {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok {
			return Argon2Params{}, nil, nil, errBadArgon2
		}
		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return Argon2Params{}, nil, nil, errBadArgon2
			}
			p.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return Argon2Params{}, nil, nil, errBadArgon2
			}
			p.Iterations = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil {
				return Argon2Params{}, nil, nil, errBadArgon2
			}
			p.Parallelism = uint8(v)
		default:
			return Argon2Params{}, nil, nil, errBadArgon2
		}
	}
	if p.Memory == 0 || p.Memory > maxArgon2Memory ||
		p.Iterations == 0 || p.Iterations > maxArgon2Iterations ||
		p.Parallelism == 0 {
		return Argon2Params{}, nil, nil, errBadArgon2
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[4])
	if err != nil || len(salt) == 0 || len(salt) > maxArgon2SaltOrKeyLn {
		return Argon2Params{}, nil, nil, errBadArgon2
	}
	key, err := enc.DecodeString(parts[5])
	if err != nil || len(key) < minArgon2KeyLen || len(key) > maxArgon2SaltOrKeyLn {
		return Argon2Params{}, nil, nil, errBadArgon2
	}
	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}

// Package ownertoken issues and verifies the HS256 bearer tokens that
// authorize creating the owner account.
//
// A token is a compact JWS with header {"alg":"HS256"} and payload
// {"sub":"owner","username":...,"machine_id":...,"exp":...}. The registry
// server hands one out on a successful claim; an operator without a registry
// can be given a pre-issued token instead.
package ownertoken

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/havengate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	Subject   = "owner"
	Algorithm = "HS256"
)

const (
	msgSecretMissing = "Owner token secret is not configured."
	msgFormat        = "Invalid owner token format."
	msgPayload       = "Invalid owner token payload."
	msgAlgorithm     = "Unsupported owner token algorithm."
	msgSignature     = "Owner token signature verification failed."
	msgSubject       = "Owner token is not for owner creation."
	msgUsername      = "Owner token username mismatch."
	msgMachine       = "Owner token machine mismatch."
	msgExpired       = "Owner token has expired."
)

var errEmptySecret = errors.New("token secret is empty")

// Claims is the token payload.
type Claims struct {
	Username  string `json:"username"`
	MachineID string `json:"machine_id"`
	jwt.RegisteredClaims
}

// Sign issues a token for username on machineID. A zero ttl issues a token
// without exp.
func Sign(secret []byte, username, machineID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errEmptySecret
	}

	claims := Claims{
		Username:  username,
		MachineID: machineID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: Subject,
		},
	}
	if ttl != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	delete(token.Header, "typ")

	return token.SignedString(secret)
}

// Verify checks token against secret and the expected username and machine.
// Checks run in a fixed order and the first failure is returned as a
// *common.Failure wrapping common.ErrInvalidToken (common.ErrTokenExpired
// for an elapsed exp).
func Verify(token string, secret []byte, username, machineID string, now time.Time) (*Claims, error) {
	if len(secret) == 0 {
		return nil, fail(msgSecretMissing)
	}
	if strings.Count(token, ".") != 2 {
		return nil, fail(msgFormat)
	}

	unverified, _, err := jwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, fail(msgAlgorithm)
		}
		return nil, fail(msgPayload)
	}
	if alg, _ := unverified.Header["alg"].(string); alg != Algorithm {
		return nil, fail(msgAlgorithm)
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{Algorithm}),
		jwt.WithoutClaimsValidation(),
	)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}); err != nil {
		return nil, fail(msgSignature)
	}

	if claims.Subject != Subject {
		return nil, fail(msgSubject)
	}
	if !strings.EqualFold(claims.Username, username) {
		return nil, fail(msgUsername)
	}
	if claims.MachineID != machineID {
		return nil, fail(msgMachine)
	}
	if claims.ExpiresAt != nil && now.Unix() > claims.ExpiresAt.Unix() {
		return nil, common.Fail(common.ErrTokenExpired, msgExpired)
	}
	return claims, nil
}

func fail(msg string) error {
	return common.Fail(common.ErrInvalidToken, msg)
}

package machine

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes_Fingerprint_IsSHA256OfConcatenation(t *testing.T) {
	a := Attributes{Hostname: "vault", OS: "Linux", Release: "6.1.0", Arch: "x86_64", Processor: "Intel(R) Xeon(R)"}

	sum := sha256.Sum256([]byte("vaultLinux6.1.0x86_64Intel(R) Xeon(R)"))
	assert.Equal(t, hex.EncodeToString(sum[:]), a.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
}

func TestAttributes_Fingerprint_EmptyFieldsContributeNothing(t *testing.T) {
	withGap := Attributes{Hostname: "vault", OS: "Linux", Arch: "x86_64"}
	sum := sha256.Sum256([]byte("vaultLinuxx86_64"))
	assert.Equal(t, hex.EncodeToString(sum[:]), withGap.Fingerprint())

	empty := Attributes{}
	sum = sha256.Sum256(nil)
	assert.Equal(t, hex.EncodeToString(sum[:]), empty.Fingerprint())
}

func TestAttributes_Fingerprint_DiffersPerHost(t *testing.T) {
	a := Attributes{Hostname: "m1", OS: "Linux"}
	b := Attributes{Hostname: "m2", OS: "Linux"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestHost_Fingerprint_Deterministic(t *testing.T) {
	h := NewHost()
	first := h.Fingerprint()
	require.Len(t, first, 64)
	assert.Equal(t, first, h.Fingerprint())
	assert.Equal(t, first, NewHost().Fingerprint(), "independent instances agree on the same host")
}

func TestStatic(t *testing.T) {
	var id Identity = Static("M1")
	assert.Equal(t, "M1", id.Fingerprint())
}

func TestProcessor_ReadsModelName(t *testing.T) {
	orig := cpuinfoPath
	t.Cleanup(func() { cpuinfoPath = orig })

	dir := t.TempDir()
	cpuinfoPath = filepath.Join(dir, "cpuinfo")
	require.NoError(t, os.WriteFile(cpuinfoPath, []byte("processor\t: 0\nvendor_id\t: GenuineIntel\nmodel name\t: Test CPU @ 2.00GHz\n"), 0o600))
	assert.Equal(t, "Test CPU @ 2.00GHz", processor())

	cpuinfoPath = filepath.Join(dir, "absent")
	assert.Equal(t, "", processor())
}

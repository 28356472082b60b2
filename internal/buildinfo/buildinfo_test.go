package buildinfo

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintBuildData_DefaultsToNA(t *testing.T) {
	var buf bytes.Buffer
	PrintBuildData(&buf)

	out := buf.String()
	for _, want := range []string{"Build version: N/A", "Build date: N/A", "Build commit: N/A"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if Version() != "N/A" {
		t.Fatalf("Version() = %q", Version())
	}
}

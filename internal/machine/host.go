package machine

import (
	"bufio"
	"os"
	"runtime"
	"strings"
)

// cpuinfoPath is swapped in tests.
var cpuinfoPath = "/proc/cpuinfo"

// unameFallback reports what the Go runtime knows when uname is unavailable.
// The release is unknown there.
func unameFallback() (string, string, string) {
	return runtime.GOOS, "", runtime.GOARCH
}

// processor returns the first "model name" from cpuinfo, or "".
func processor() string {
	f, err := os.Open(cpuinfoPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if ok && strings.TrimSpace(key) == "model name" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

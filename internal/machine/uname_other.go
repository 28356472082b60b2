//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package machine

func uname() (sysname, release, arch string) {
	return unameFallback()
}

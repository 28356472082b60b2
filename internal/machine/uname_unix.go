//go:build linux || darwin || freebsd || netbsd || openbsd

package machine

import "golang.org/x/sys/unix"

func uname() (sysname, release, arch string) {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return unameFallback()
	}
	return unix.ByteSliceToString(u.Sysname[:]),
		unix.ByteSliceToString(u.Release[:]),
		unix.ByteSliceToString(u.Machine[:])
}

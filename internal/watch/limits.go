//go:build !windows

package watch

import "golang.org/x/sys/unix"

// descriptorCeiling computes how many directories one engine may
// register: the process's open-file soft limit minus a safety margin
// for everything else the process holds open, floored so a tiny limit
// still leaves a usable watch.
func descriptorCeiling() int {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return fdCeilingFloor
	}
	return clampCeiling(int(rl.Cur))
}

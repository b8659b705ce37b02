//go:build unix

package launcher

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// reraise delivers the child's fatal signal to this process with the
// default disposition restored, so callers observe the same death.
func reraise(sig os.Signal) {
	signal.Reset(sig)
	if s, ok := sig.(unix.Signal); ok {
		_ = unix.Kill(os.Getpid(), s)
	}
}

//go:build !unix

package launcher

import "os"

// reraise is a no-op where signal dispositions cannot be restored; the
// caller falls back to exiting 128+signum.
func reraise(os.Signal) {}

package launcher

import (
	"os"
	"runtime"
	"strings"

	"github.com/dotnope/dotnope/internal/interposer"
)

// Status describes the native plane as seen from this process.
type Status struct {
	Platform         string `json:"platform"`
	PreloadSupported bool   `json:"preload_supported"`
	PreloadActive    bool   `json:"preload_active"`
	LibraryPath      string `json:"library_path,omitempty"`
	LdPreload        string `json:"ld_preload,omitempty"`
	Policy           string `json:"dotnope_policy,omitempty"`
	IntegrityError   string `json:"integrity_error,omitempty"`
}

// PreloadActive reports whether this process itself runs under the
// interposer.
func PreloadActive() bool {
	return strings.Contains(os.Getenv(interposer.PreloadVar), LibraryName)
}

// CurrentStatus collects the status of the running process plus the
// launcher's own findings.
func (l *Launcher) CurrentStatus() Status {
	s := Status{
		Platform:         runtime.GOOS + "/" + runtime.GOARCH,
		PreloadSupported: PreloadSupported(),
		PreloadActive:    PreloadActive(),
		LibraryPath:      l.libPath,
		LdPreload:        os.Getenv(interposer.PreloadVar),
		Policy:           os.Getenv(interposer.PolicyVar),
	}
	if err := l.IntegrityErr(); err != nil {
		s.IntegrityError = err.Error()
	}
	return s
}

// Package launcher spawns a child process under the native environment
// firewall: it locates and attests the interposer library, serializes
// the policy into the process environment contract, and forwards the
// child's exit status faithfully.
package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dotnope/dotnope/internal/integrity"
	"github.com/dotnope/dotnope/internal/interposer"
	"github.com/dotnope/dotnope/internal/policy"
)

// LibraryName is the interposer's file name on preload platforms.
const LibraryName = "libdotnope.so"

// LibraryPathVar overrides the library search when set.
const LibraryPathVar = "DOTNOPE_LIBRARY"

// Config configures one launch.
type Config struct {
	// ConfigPath is the policy source (package.json or dotnope.yaml).
	ConfigPath string
	// LibraryPath overrides interposer discovery.
	LibraryPath string
	// LogPath, when set, becomes the child's DOTNOPE_LOG.
	LogPath string
	// Verbose prints launch details to stderr.
	Verbose bool
}

// Launcher holds a loaded policy and a located (and attested)
// interposer library.
type Launcher struct {
	cfg      Config
	pol      *policy.Policy
	polHash  string
	libPath  string
	attested *integrity.Result
}

// New loads the policy and locates the interposer. A missing library
// is not an error: the native plane is advisory on platforms without a
// supported preload mechanism.
func New(cfg Config) (*Launcher, error) {
	pol, hash, err := policy.LoadFileWithHash(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}

	l := &Launcher{cfg: cfg, pol: pol, polHash: hash}
	l.libPath = cfg.LibraryPath
	if l.libPath == "" {
		l.libPath = LocateLibrary()
	}
	if l.libPath != "" {
		result, err := integrity.VerifyFile(l.libPath, "")
		if err != nil {
			return nil, err
		}
		l.attested = result
		if result.Outcome == integrity.OutcomeRefused {
			// Refusal disables the native plane; the runtime mediator
			// continues with the fallback backend.
			fmt.Fprintf(os.Stderr, "dotnope: %v\n", result.Err)
			l.libPath = ""
		}
	}
	return l, nil
}

// Policy returns the loaded policy.
func (l *Launcher) Policy() *policy.Policy { return l.pol }

// PolicyHash returns the config hash.
func (l *Launcher) PolicyHash() string { return l.polHash }

// LibraryPath returns the attested interposer path, or "".
func (l *Launcher) LibraryPath() string { return l.libPath }

// IntegrityErr returns the attestation failure, if any.
func (l *Launcher) IntegrityErr() error {
	if l.attested != nil && l.attested.Err != nil {
		return l.attested.Err
	}
	return nil
}

// NativeAvailable reports whether the native plane will be active for
// children: a library was found and not refused.
func (l *Launcher) NativeAvailable() bool {
	return l.libPath != "" && PreloadSupported()
}

// PreloadSupported reports whether the platform has a supported
// loader-preload mechanism.
func PreloadSupported() bool {
	return runtime.GOOS == "linux"
}

// LocateLibrary searches the conventional interposer locations:
// the DOTNOPE_LIBRARY override, the executable's directory, the
// working directory, and the per-user and system install trees.
func LocateLibrary() string {
	var candidates []string
	if p := os.Getenv(LibraryPathVar); p != "" {
		candidates = append(candidates, p)
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), LibraryName))
	}
	candidates = append(candidates, filepath.Join(".", LibraryName))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".dotnope", "lib", LibraryName))
	}
	candidates = append(candidates,
		filepath.Join("/usr/local/lib/dotnope", LibraryName),
		filepath.Join("/usr/lib/dotnope", LibraryName),
	)

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

// ChildEnv builds the child's environment from base: the interposer is
// prepended to LD_PRELOAD and the policy contract variables are set.
func (l *Launcher) ChildEnv(base []string) []string {
	out := make([]string, 0, len(base)+3)
	var preload string
	for _, kv := range base {
		switch {
		case strings.HasPrefix(kv, interposer.PreloadVar+"="):
			preload = kv[len(interposer.PreloadVar)+1:]
		case strings.HasPrefix(kv, interposer.PolicyVar+"="),
			strings.HasPrefix(kv, interposer.LogVar+"="):
			// Replaced below.
		default:
			out = append(out, kv)
		}
	}

	if l.NativeAvailable() {
		if preload != "" {
			preload = l.libPath + ":" + preload
		} else {
			preload = l.libPath
		}
	}
	if preload != "" {
		out = append(out, interposer.PreloadVar+"="+preload)
	}

	out = append(out, interposer.PolicyVar+"="+policy.GeneratePolicy(l.pol))
	if l.cfg.LogPath != "" {
		out = append(out, interposer.LogVar+"="+l.cfg.LogPath)
	}
	return out
}

// ScriptCommand maps a positional script path to an interpreter
// invocation. Extensions .js/.mjs/.cjs run under node; anything else
// is executed directly.
func ScriptCommand(path string, args []string) []string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs", ".cjs":
		return append([]string{"node", path}, args...)
	default:
		return append([]string{path}, args...)
	}
}

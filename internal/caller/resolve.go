package caller

import (
	"strings"
	"sync"

	"github.com/dotnope/dotnope/internal/model"
)

// selfPackage is this module's import path. Frames belonging to it are
// always skipped during attribution, whether the module was loaded from
// a dependency directory or a development checkout.
const selfPackage = "github.com/dotnope/dotnope"

// defaultInternalPrefixes are file-path prefixes of runtime-internal
// modules that carry no caller identity.
var defaultInternalPrefixes = []string{
	"node:",
	"internal/",
	"runtime/",
	"syscall/",
}

// Resolver maps stack snapshots to caller identities.
type Resolver struct {
	backend          Backend
	internalPrefixes []string

	// cache maps file paths to resolved package names ("" means main).
	// Entries are immutable once inserted; the map grows with the set
	// of source paths the process loads and is never evicted.
	cache sync.Map

	// asyncOrigins maps an opaque continuation key to the package that
	// scheduled it. Consulted only when the walk yields unknown.
	asyncOrigins sync.Map
}

// NewResolver creates a Resolver over the given backend. A nil backend
// selects the trusted VM-level backend.
func NewResolver(backend Backend) *Resolver {
	if backend == nil {
		backend = NewTrustedBackend()
	}
	return &Resolver{
		backend:          backend,
		internalPrefixes: defaultInternalPrefixes,
	}
}

// Backend returns the capture backend in use.
func (r *Resolver) Backend() Backend { return r.backend }

// SetInternalPrefixes replaces the runtime-internal skip list.
func (r *Resolver) SetInternalPrefixes(prefixes []string) {
	r.internalPrefixes = prefixes
}

// Identify captures a stack snapshot and resolves the caller identity.
// skip is the number of mediator frames between the interception point
// and the capture call.
func (r *Resolver) Identify(skip int) model.Identity {
	return r.Resolve(r.backend.Capture(skip + 1))
}

// Resolve runs the attribution algorithm over an explicit frame list.
// Frames are ordered innermost first.
func (r *Resolver) Resolve(frames []Frame) model.Identity {
	eval := false
	for _, f := range frames {
		if isEvalFrame(f) {
			eval = true
		}
		if r.isSelfFrame(f) || r.isInternalFrame(f) {
			continue
		}
		// Attribution needs a real file path; synthetic frames (no file,
		// or a VM-synthetic eval path) only feed the eval flag.
		if f.File == "" {
			continue
		}
		synthetic := false
		for _, match := range evalFilePatterns {
			if match(f.File) {
				synthetic = true
				break
			}
		}
		if synthetic {
			continue
		}

		pkg := r.packageForPath(f.File)
		if pkg == selfPackage {
			continue
		}
		var id model.Identity
		if pkg == "" {
			id = model.Main()
		} else {
			id = model.Package(pkg)
		}
		id.Eval = eval
		return id
	}
	return model.Unknown()
}

// isSelfFrame reports whether the frame belongs to the mediator itself.
func (r *Resolver) isSelfFrame(f Frame) bool {
	if strings.HasPrefix(f.Function, selfPackage+"/") || strings.HasPrefix(f.Function, selfPackage+".") {
		return true
	}
	// Dependency-directory and development-directory layouts.
	if strings.Contains(f.File, "node_modules/dotnope/") {
		return true
	}
	return strings.Contains(f.File, selfPackage+"/internal/") || strings.Contains(f.File, selfPackage+"@")
}

func (r *Resolver) isInternalFrame(f Frame) bool {
	for _, prefix := range r.internalPrefixes {
		if strings.HasPrefix(f.File, prefix) {
			return true
		}
	}
	// A frame whose file maps to a package is attributable and never
	// runtime-internal, whatever its symbol looks like.
	if PackageFromPath(f.File) != "" {
		return false
	}
	return isStdlibFunction(f.Function)
}

// isStdlibFunction reports whether a qualified Go symbol belongs to the
// standard library or runtime: an import path whose first segment has
// no dot (os.Getenv, runtime/debug.Stack). Unqualified names are
// host-supplied frames, and package main is the host application;
// neither is runtime-internal.
func isStdlibFunction(fn string) bool {
	if fn == "" || strings.HasPrefix(fn, "main.") {
		return false
	}
	if slash := strings.IndexByte(fn, '/'); slash >= 0 {
		return !strings.Contains(fn[:slash], ".")
	}
	dot := strings.IndexByte(fn, '.')
	if dot < 0 {
		return false
	}
	return !strings.Contains(fn[:dot], ".")
}

// packageForPath maps a file path to a package name, caching the result.
// An empty result means the path belongs to the host application.
func (r *Resolver) packageForPath(path string) string {
	if path == "" {
		return ""
	}
	if cached, ok := r.cache.Load(path); ok {
		return cached.(string)
	}
	pkg := PackageFromPath(path)
	actual, _ := r.cache.LoadOrStore(path, pkg)
	return actual.(string)
}

// PackageFromPath extracts the owning package name from a source path.
//
// Paths under the last node_modules segment resolve to the package that
// segment names, honoring a leading @scope. Paths under a Go module
// cache (pkg/mod) resolve to the module path with its version stripped.
// Anything else belongs to the host application.
func PackageFromPath(path string) string {
	norm := strings.ReplaceAll(path, "\\", "/")

	if idx := strings.LastIndex(norm, "node_modules/"); idx >= 0 {
		rest := norm[idx+len("node_modules/"):]
		parts := strings.Split(rest, "/")
		if len(parts) == 0 || parts[0] == "" {
			return ""
		}
		if strings.HasPrefix(parts[0], "@") {
			if len(parts) < 2 || parts[1] == "" {
				return ""
			}
			return parts[0] + "/" + parts[1]
		}
		return parts[0]
	}

	if idx := strings.LastIndex(norm, "/pkg/mod/"); idx >= 0 {
		rest := norm[idx+len("/pkg/mod/"):]
		if at := strings.Index(rest, "@"); at > 0 {
			return rest[:at]
		}
	}

	return ""
}

// RecordAsyncOrigin notes the package that scheduled a continuation.
// Recording main is a no-op: the table never upgrades an identity.
func (r *Resolver) RecordAsyncOrigin(key any, pkg string) {
	if pkg == "" {
		return
	}
	r.asyncOrigins.Store(key, pkg)
}

// DropAsyncOrigin removes a continuation key once it has settled.
func (r *Resolver) DropAsyncOrigin(key any) {
	r.asyncOrigins.Delete(key)
}

// IdentifyWithAsync resolves the caller and, when the walk yields
// unknown, falls back to the recorded async origin for key.
func (r *Resolver) IdentifyWithAsync(skip int, key any) model.Identity {
	return r.resolveAsync(r.backend.Capture(skip+1), key)
}

func (r *Resolver) resolveAsync(frames []Frame, key any) model.Identity {
	id := r.Resolve(frames)
	if id.Kind != model.KindUnknown || key == nil {
		return id
	}
	if origin, ok := r.asyncOrigins.Load(key); ok {
		return model.Package(origin.(string))
	}
	return id
}

// CacheSize returns the number of resolved paths, for status surfaces.
func (r *Resolver) CacheSize() int {
	n := 0
	r.cache.Range(func(any, any) bool { n++; return true })
	return n
}

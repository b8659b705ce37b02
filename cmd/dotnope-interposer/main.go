// dotnope-interposer is the loader-injected shared library that keeps
// native extensions from sidestepping the runtime mediator. Build with:
//
//	go build -buildmode=c-shared -o libdotnope.so ./cmd/dotnope-interposer
//
// The launcher places the resulting library in LD_PRELOAD. Exported
// getenv replacements consult the DOTNOPE_POLICY allow-set and delegate
// allowed reads to the original symbol via the dynamic linker's
// next-symbol facility.
package main

// main never runs; c-shared libraries only execute exported symbols and
// initializers.
func main() {}

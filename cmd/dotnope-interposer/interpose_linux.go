//go:build linux && cgo

package main

/*
#cgo LDFLAGS: -ldl

#include <stdlib.h>

#ifndef RTLD_NEXT
#define RTLD_NEXT ((void *) -1l)
#endif

extern void *dlsym(void *handle, const char *symbol);

typedef char *(*getenv_fn)(const char *);

static getenv_fn next_getenv;
static getenv_fn next_secure_getenv;

static char *call_next_getenv(const char *name) {
	if (!next_getenv) {
		next_getenv = (getenv_fn)dlsym(RTLD_NEXT, "getenv");
	}
	if (!next_getenv) {
		return 0;
	}
	return next_getenv(name);
}

static char *call_next_secure_getenv(const char *name) {
	if (!next_secure_getenv) {
		next_secure_getenv = (getenv_fn)dlsym(RTLD_NEXT, "secure_getenv");
	}
	if (!next_secure_getenv) {
		return 0;
	}
	return next_secure_getenv(name);
}
*/
import "C"

import "github.com/dotnope/dotnope/internal/interposer"

// gate is the per-process decision core; its policy parse is guarded by
// a once inside.
var gate = interposer.NewGate()

//export getenv
func getenv(name *C.char) *C.char {
	if name == nil {
		return nil
	}
	if !gate.Allow(C.GoString(name)) {
		return nil
	}
	return C.call_next_getenv(name)
}

//export secure_getenv
func secure_getenv(name *C.char) *C.char {
	if name == nil {
		return nil
	}
	if !gate.Allow(C.GoString(name)) {
		return nil
	}
	return C.call_next_secure_getenv(name)
}

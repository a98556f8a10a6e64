//go:build llama

package manager

// Link against libllama from ./bin at build time and from the binary's own
// directory at run time.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"

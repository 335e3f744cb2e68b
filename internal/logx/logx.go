// Package logx centralises the NoLogf/Logf closure pair the original
// CLI wired up by hand in main.go, so every package that accepts a
// LogFunc (parser, builder, emitter) shares one construction point.
package logx

import "fmt"

// Func logs a formatted line somewhere, or nowhere.
type Func func(format string, args ...interface{})

// Noop discards everything; the default when verbose output is off.
func Noop(string, ...interface{}) {}

// New returns Noop unless verbose is true, in which case it returns a
// Func that writes to stdout via fmt.Printf with a trailing newline.
func New(verbose bool) Func {
	if !verbose {
		return Noop
	}
	return func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	}
}

package main

import "fmt"

// exitCodeError makes the process exit with code without printing anything.
// Scripts read on/off state from the exit status.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

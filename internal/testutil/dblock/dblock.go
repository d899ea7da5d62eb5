// Package dblock serializes database-backed test packages. Integration tests
// truncate shared tables, so only one package may hold the lock at a time.
package dblock

import (
	"net"
	"time"
)

const lockAddr = "127.0.0.1:45433"

func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}

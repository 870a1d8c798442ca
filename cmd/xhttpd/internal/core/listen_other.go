//go:build !unix

package core

import "syscall"

// Address reuse is left to the platform defaults.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}

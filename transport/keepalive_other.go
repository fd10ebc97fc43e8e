//go:build !linux

package transport

import (
	"net"
	"time"
)

// tuneKeepaliveKernelKnobs is a no-op on platforms without the Linux
// TCP_KEEPINTVL/TCP_KEEPCNT socket options; SetKeepAlivePeriod already
// applied in TCPTransport.tune is all those platforms offer.
func tuneKeepaliveKernelKnobs(tc *net.TCPConn, interval time.Duration, count int) {}

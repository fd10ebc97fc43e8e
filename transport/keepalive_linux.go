//go:build linux

package transport

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// tuneKeepaliveKernelKnobs sets the interval/probe-count keepalive
// knobs the standard library does not expose, mirroring how
// m-lab-tcp-info's socket-monitor drops to golang.org/x/sys/unix
// whenever net alone cannot reach a socket option it needs.
func tuneKeepaliveKernelKnobs(tc *net.TCPConn, interval time.Duration, count int) {
	raw, err := tc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(interval.Seconds()))
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, count)
	})
}

package net

import (
	"fmt"
	"net"
)

// GetEphemeralTCPPort returns a loopback TCP port that was free at the time of the
// call. There is an inherent race with other listeners; callers should only rely on
// this in tests.
func GetEphemeralTCPPort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolving 127.0.0.1:0: %w", err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listening to acquire port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// GetEphemeralTCPAddr returns a loopback host:port string with a port that was free
// at the time of the call.
func GetEphemeralTCPAddr() (string, error) {
	port, err := GetEphemeralTCPPort()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("127.0.0.1:%d", port), nil
}

package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/giantswarm/procpool/internal/sentinel"
)

// ErrPortExhausted is returned when every port offered by the kernel within
// maxPortRetries attempts was already handed to another instance.
const ErrPortExhausted = sentinel.Error("no unreserved port available")

const maxPortRetries = 20

// PortRegistry maps reserved loopback ports to the instance holding them.
// A pool owns one registry and shares it with every server extension.
type PortRegistry struct {
	mu     sync.Mutex
	owners map[int]string
	log    *slog.Logger
}

// NewPortRegistry returns an empty registry. A nil logger means slog.Default().
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		owners: make(map[int]string),
		log:    logger,
	}
}

func (r *PortRegistry) claim(port int, owner string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.owners[port]; taken {
		return false
	}
	r.owners[port] = owner
	return true
}

// Release frees port. Unknown ports are ignored.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.owners, port)
}

// Owner reports which instance holds port.
func (r *PortRegistry) Owner(port int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[port]
	return owner, ok
}

// Reserved returns the number of ports currently held.
func (r *PortRegistry) Reserved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.owners)
}

// AllocatePort probes the kernel for a free loopback port that no other
// instance holds and records owner against it. The probe listener is closed
// before returning, so the owner must bind the port itself and Release it
// once the instance is gone.
func (r *PortRegistry) AllocatePort(owner string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}

	for range maxPortRetries {
		port, err := probe(addr)
		if err != nil {
			return 0, err
		}
		if r.claim(port, owner) {
			return port, nil
		}
		prev, _ := r.Owner(port)
		r.log.Debug("port held by another instance, retrying", "port", port, "owner", prev, "instance", owner)
	}
	return 0, fmt.Errorf("allocate port for %s after %d attempts: %w", owner, maxPortRetries, ErrPortExhausted)
}

func probe(addr *net.TCPAddr) (int, error) {
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listen on tcp address: %w", err)
	}
	defer l.Close() //nolint:errcheck // probe listener, nothing was accepted
	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
	}
	return tcpAddr.Port, nil
}

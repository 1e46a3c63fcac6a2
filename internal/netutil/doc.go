// Package netutil hands out free loopback TCP ports to pooled instances and
// remembers which instance holds each one until it is released. The probe
// listener is closed before the instance binds the port, so the registry is
// what keeps two instances created back to back apart.
package netutil

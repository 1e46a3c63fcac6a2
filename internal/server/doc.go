// Package server provides the "server" extension. It reserves a free TCP
// port when an instance is created and exposes it through Port. Instances
// that accept environment variables receive it as PORT.
package server

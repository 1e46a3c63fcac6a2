package sentinel

var _ error = Error("")

// Error is an error backed by a string constant. Two Error values with the
// same text compare equal, so errors.Is matches them through wrapped chains
// without pointer identity.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}

// Is reports whether target is the same sentinel. It lets errors.Is match a
// sentinel that was converted to the error interface more than once.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	return ok && t == e
}

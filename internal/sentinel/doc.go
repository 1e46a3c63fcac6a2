// Package sentinel provides a string-backed error type so that procpool's
// sentinel errors can be declared as constants instead of reassignable
// variables.
package sentinel

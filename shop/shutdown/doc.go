// Package shutdown provides the Coordinator that turns the first stop request, programmatic
// or from a process signal, into a canceled context observed by every producer loop.
package shutdown

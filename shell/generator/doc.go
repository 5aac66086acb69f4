// Package generator wires the store, the publish sink, the producer loops and their drivers
// into one load generator with an explicit lifecycle: New, Prepare, Run, Close.
package generator

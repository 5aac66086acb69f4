// Package helper contains spies, fakes and fixtures shared by the tests of the load generator.
package helper

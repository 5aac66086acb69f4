// Package postgreswrapper runs store integration tests against any of the supported connection types.
//
// The connection type is taken from the ADAPTER_TYPE environment variable (pgxpool, sqldb, sqlxdb;
// pgxpool when unset). Every wrapper works in its own freshly bootstrapped schema, which Close drops.
// Tests are skipped when the database behind helper.TestDSN is unreachable.
//
// Usage:
//
//	wrapper := CreateWrapperWithTestConfig(t)
//	defer wrapper.Close()
//
//	store := wrapper.GetStore()
package postgreswrapper

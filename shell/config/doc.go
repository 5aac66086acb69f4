// Package config holds the load generator configuration and the factories that turn it into
// database connections and OpenTelemetry providers.
//
// Values are resolved by viper in this order: command line flags, LOADGEN_* environment
// variables, an optional config file and finally the defaults set in Defaults.
package config

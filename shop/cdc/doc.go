// Package cdc registers the Debezium Postgres connector with a Kafka Connect cluster, so every row
// change in the shop schema shows up as a change event on Kafka.
//
// Registration is idempotent: a connector that already exists counts as registered.
package cdc

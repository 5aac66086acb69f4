// Package producer contains the two producer loops of the load generator.
//
// A PurchaseLoop writes one purchase per tick to the relational store and publishes a linked
// pageview for it. A PageviewLoop publishes one random pageview per tick. Both expose a Tick
// method with the signature of scheduler.Action, so each loop is driven by its own
// scheduler.Driver.
//
// The two side effects of a purchase tick are not transactional: the pageview is published
// before the purchase is inserted, and a failed publish does not skip the insert.
package producer

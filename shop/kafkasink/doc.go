// Package kafkasink publishes load generator events to Kafka (or any Kafka API compatible broker).
//
// Messages are JSON encoded and written asynchronously by a segmentio/kafka-go Writer; the message
// key decides the partition through a hash balancer, so all pageviews of one user stay in order.
// Delivery failures surface in the writer's completion callback, where they are logged and counted.
package kafkasink

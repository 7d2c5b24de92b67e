// Package eventflow is a small layer on top of Watermill that turns a message
// broker into an integration event bus with retries, dead lettering, and
// per-event-type metrics. It reads the target transport (Kafka, RabbitMQ,
// NATS, or Go channels) from Config, bootstraps the Watermill router, and
// registers the default middleware chain for correlation IDs, logging,
// tracing, Prometheus metrics, and panic recovery.
//
// Events are plain Go structs serialized as JSON. Each event type fans out on
// its own topic inside the configured exchange namespace, so every subscriber
// group receives every event of the types it handles, and delivery is at
// least once: handlers must be idempotent.
//
// Service hosts the router and exposes typed helpers: RegisterEventHandler
// binds a handler to the event type derived from T, and Service.Publish lets
// HTTP/RPC handlers emit events without touching low-level Watermill APIs.
// A failed handler is retried with exponential backoff and a per-attempt
// timeout; once the attempts are exhausted the event is wrapped in a
// DeadLetterEvent, carrying the original payload, the final error, and a
// stack trace, and published to the dead-letter exchange where
// RegisterDeadLetterHandler can pick it up. A minimal setup therefore
// involves filling Config, creating a Service, registering handlers, and
// calling Start.
//
// # Transports
//
// Eventflow supports 4 message transports out of the box:
//   - channel: In-memory Go channels for testing
//   - kafka: High-throughput streaming with consumer groups
//   - rabbitmq: AMQP-based durable queues
//   - nats: High-performance messaging
//
// Import the ones you need for their side effects, or blank-import
// transport/transports to get all of them.
//
// # Middleware
//
// The default middleware chain includes correlation ID injection, structured
// logging, OpenTelemetry tracing, Prometheus metrics, and panic recovery.
// Retries and dead lettering are not middleware: the job pipeline owns them
// so that every terminal outcome is acknowledged exactly once. Custom
// middleware can be added via ServiceDependencies.Middlewares.
//
// # Job Hooks
//
// JobHooks provides OnJobStart, OnJobDone, and OnJobError callbacks for
// custom logging, metrics collection, and alerting around handler execution.
// Pass them in ServiceDependencies.Hooks or merge several sets with
// JobHooks.Merge.
package eventflow

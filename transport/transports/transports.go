// Package transports imports all built-in transports for auto-registration.
// Import this package to have all transports registered with the default registry.
package transports

import (
	// Import all transports for side-effect registration
	_ "github.com/luntra/eventflow/transport/channel"
	_ "github.com/luntra/eventflow/transport/kafka"
	_ "github.com/luntra/eventflow/transport/nats"
	_ "github.com/luntra/eventflow/transport/rabbitmq"
)

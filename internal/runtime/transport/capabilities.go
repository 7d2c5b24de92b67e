// Package transport provides transport types and interfaces for the internal runtime.
// Transport implementations live in github.com/luntra/eventflow/transport/*.
package transport

import (
	pubtransport "github.com/luntra/eventflow/transport"
)

// Capabilities is an alias for the modular transport Capabilities.
type Capabilities = pubtransport.Capabilities

// CapabilitiesProvider is an alias for the modular transport CapabilitiesProvider.
type CapabilitiesProvider = pubtransport.CapabilitiesProvider

// Predefined capability sets, aliased from the public transport package.
var (
	ChannelCapabilities  = pubtransport.ChannelCapabilities
	RabbitMQCapabilities = pubtransport.RabbitMQCapabilities
	KafkaCapabilities    = pubtransport.KafkaCapabilities
	NATSCapabilities     = pubtransport.NATSCapabilities
)

// GetCapabilities returns the capabilities for a transport by name.
func GetCapabilities(transportName string) Capabilities {
	return pubtransport.GetCapabilities(transportName)
}

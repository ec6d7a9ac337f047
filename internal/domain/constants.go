package domain

import "time"

// Normative limits. Compiled defaults that can be overridden via configuration
// where a config key exists.
const (
	// Message pagination: page size is enforced server-side regardless of
	// what the client asks for.
	MessagePageSize = 100

	// Message limits
	MaxMessageSize = 4 * 1024 // 4 KB max message content

	// Connection limits
	MaxConnectionsPerUser     = 5
	ConnectionRateLimitWindow = 10 * time.Second
	ConnectionRateLimit       = 5 // Max new connections per user per window

	// Outbound buffering per connection
	OutboundBufferSize = 256

	// Heartbeat configuration
	HeartbeatInterval = 30 * time.Second
	HeartbeatTimeout  = 60 * time.Second

	// Timeout contracts
	PostgresTimeout = 5 * time.Second
	RedisTimeout    = 2 * time.Second

	// Graceful shutdown
	ShutdownDrainDelay      = 2 * time.Second
	ShutdownHTTPTimeout     = 20 * time.Second
	ShutdownOTELTimeout     = 5 * time.Second
	GracefulShutdownTimeout = 30 * time.Second
)

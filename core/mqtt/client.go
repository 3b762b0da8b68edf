package mqtt

// Publisher sends payloads to broker topics. Implementations retry
// transient failures before returning an error.
type Publisher interface {
	Publish(topic string, payload []byte) error
	// Disconnect flushes in-flight messages and closes the connection.
	Disconnect()
}

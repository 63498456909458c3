package queue

// wrapper replaces the caller's value on the wire when a message exceeds
// the configured size threshold. The actual payload is placed in the
// overflow blob store and the queue only ever transports this pointer.
type wrapper struct {
	ContainerName string `json:"container_name"`
	BlobName      string `json:"blob_name"`
}

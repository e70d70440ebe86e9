package indexing

// Task is one unit of work accepted by the IndexingQueue: index a
// message's text into the vector store.
type Task struct {
	ID         string
	Message    string
	RoomID     string
	Metadata   map[string]any
	Attempts   int
	MaxRetries int
}

// NewTask builds a Task with the default max_retries of 3.
func NewTask(id, message, roomID string, metadata map[string]any) Task {
	return Task{ID: id, Message: message, RoomID: roomID, Metadata: metadata, MaxRetries: 3}
}

// CanRetry reports whether another attempt is allowed.
func (t Task) CanRetry() bool {
	return t.Attempts < t.MaxRetries
}

package model

import "time"

// Message is a raw feed message waiting to be parsed.
type Message struct {
	ID         string    // delivery id used for deduplication
	Payload    []byte    // raw JSON text as received
	ReceivedAt time.Time // ingestion time
}

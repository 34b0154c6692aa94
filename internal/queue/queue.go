// Package queue implements the durable work queue carrying batch job
// payloads. Delivery is at-least-once: a received message stays invisible to
// other consumers until its visibility timeout elapses, and reappears if not
// deleted in time. The visibility timeout is the only exclusivity mechanism
// between workers; there is no per-job lock.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/meghanaraju/insightq/pkg/models"
)

var ErrReceiptNotFound = errors.New("receipt not found or no longer in flight")

// Message is one received queue entry. Receipt is the delete token; it is
// only valid while the message is in flight.
type Message struct {
	Body       []byte
	Receipt    string
	Group      string
	EnqueuedAt time.Time
}

// Queue is the work queue interface. All queue operations go through here.
// Implementations must be safe for concurrent use.
type Queue interface {
	// Enqueue appends a message to the ready queue of the given priority
	// group. A message with a dedupe id already seen inside the dedupe
	// window is silently dropped.
	Enqueue(ctx context.Context, body []byte, group, dedupeID string) error

	// Receive returns up to max messages, long-polling up to wait when the
	// queue is empty. Received messages are invisible to other consumers for
	// the visibility duration.
	Receive(ctx context.Context, max int, wait, visibility time.Duration) ([]Message, error)

	// Delete removes an in-flight message for good.
	Delete(ctx context.Context, receipt string) error

	// ExtendVisibility pushes an in-flight message's redelivery deadline out
	// by the given duration from now.
	ExtendVisibility(ctx context.Context, receipt string, visibility time.Duration) error

	// Stats reports approximate queue attributes. Advisory numbers only.
	Stats(ctx context.Context) (models.QueueStats, error)

	Ping(ctx context.Context) error
}

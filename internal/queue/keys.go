package queue

import "fmt"

const (
	inflightKey        = "queue:inflight"
	inflightPayloadKey = "queue:inflight:payload"
)

func readyKey(group string) string {
	return fmt.Sprintf("queue:ready:%s", group)
}

func dedupeKey(id string) string {
	return fmt.Sprintf("queue:dedupe:%s", id)
}

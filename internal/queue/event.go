// Package queue defines message payloads exchanged over the message broker
// plus the publisher and consumer for the usage audit stream.
package queue

// UsageRecordedEvent is published once per admitted, metered request. It
// carries enough for downstream consumers to audit traffic without querying
// the ledger. Only a key prefix travels over the broker; the full token is
// a credential and stays out of logs.
type UsageRecordedEvent struct {
	Email      string `json:"email"`
	KeyPrefix  string `json:"key_prefix"`
	Endpoint   string `json:"endpoint"`
	Day        string `json:"day"`
	RecordedAt string `json:"recorded_at"`
}

package domain

import "time"

const (
	HeaderUpdated SyncEventType = iota
	MempoolUpdated
	SyncFailed
	RoundStateUpdated
)

var (
	syncEventTypeString = map[SyncEventType]string{
		HeaderUpdated:     "HeaderUpdated",
		MempoolUpdated:    "MempoolUpdated",
		SyncFailed:        "SyncFailed",
		RoundStateUpdated: "RoundStateUpdated",
	}
)

type SyncEventType int

func (t SyncEventType) String() string {
	return syncEventTypeString[t]
}

// SyncEvent holds info about something that happened during a sync tick.
// Only the field related to the event type is set.
type SyncEvent struct {
	EventType SyncEventType
	Timestamp time.Time
	Header    *BlockHeader
	Mempool   *MempoolUpdate
	Round     *RoundState
	Err       error
}

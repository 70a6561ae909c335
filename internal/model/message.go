package model

// InboundMessage is one normalized message produced by a mailbox poll
// cycle. It is transient: consumed by the correlation guard immediately
// after the poll and never persisted. UID is the server-side stable
// identifier of the physical message, carried for reporting - dedup
// does not rely on it.
type InboundMessage struct {
	UID     uint32
	From    string // sender address, e.g. "sales@vendor.example"
	Subject string
	Text    string // decoded plain-text body
}

// Package outcome describes what happened to a single inbound event. Most
// outcomes are never sent to the client, but they are returned at every
// component boundary so that callers and tests can tell a deliberate drop
// from a failure.
package outcome

import "fmt"

type Status int

const (
	StatusSent Status = iota + 1
	StatusDropped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusDropped:
		return "dropped"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type Reason string

const (
	ReasonNone                Reason = ""
	ReasonEmptyContent        Reason = "empty_content"
	ReasonUndeliverableTarget Reason = "undeliverable_target"
	ReasonNotMember           Reason = "not_member"
	ReasonNotPresent          Reason = "not_present"
	ReasonPersistence         Reason = "persistence"
	ReasonRateLimited         Reason = "rate_limited"
	ReasonInvalidPayload      Reason = "invalid_payload"
	ReasonInternal            Reason = "internal"
)

type Outcome struct {
	Status Status
	Reason Reason
	Err    error
}

func Sent() Outcome {
	return Outcome{Status: StatusSent}
}

func Dropped(reason Reason) Outcome {
	return Outcome{Status: StatusDropped, Reason: reason}
}

func Failed(reason Reason, err error) Outcome {
	return Outcome{Status: StatusFailed, Reason: reason, Err: err}
}

func (o Outcome) String() string {
	if o.Reason == ReasonNone {
		return o.Status.String()
	}

	return fmt.Sprintf("%s(%s)", o.Status, o.Reason)
}

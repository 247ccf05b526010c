package i2cctl

import (
	"errors"
	"fmt"
)

// Raw master status bits relevant to failure classification.
const (
	statusIdle  = 0x80
	statusNoAck = 0x40
)

type Kind int

const (
	KindOK Kind = iota
	KindNoAck
	KindBusIdle
	KindStuck
	// KindFailed is used for errors that carry no status snapshot, such as
	// transport errors of bridge backends.
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindNoAck:
		return "no-ack"
	case KindBusIdle:
		return "bus-idle"
	case KindStuck:
		return "stuck"
	case KindFailed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Status is the outcome of a master transaction: a classified kind and the
// raw status register snapshot taken at the failure point (0 on success).
type Status struct {
	Kind Kind
	Raw  byte
}

func (s Status) OK() bool {
	return s.Kind == KindOK
}

// Classify turns a raw status snapshot into a Status. A zero snapshot means
// success. NO_ACK takes precedence over IDLE since a NACK usually drops the
// bus to idle as well.
func Classify(raw byte) Status {
	switch {
	case raw == 0:
		return Status{Kind: KindOK}
	case raw&statusNoAck != 0:
		return Status{Kind: KindNoAck, Raw: raw}
	default:
		return Status{Kind: KindBusIdle, Raw: raw}
	}
}

// StatusError is returned by controllers when a transaction is aborted.
type StatusError struct {
	Status Status
	// Err is the cause for KindStuck (usually a context error).
	Err error
}

// NewStatusError classifies raw and wraps it in an error. It returns nil for 0.
func NewStatusError(raw byte) error {
	st := Classify(raw)
	if st.OK() {
		return nil
	}
	return &StatusError{Status: st}
}

func (e *StatusError) Error() string {
	switch e.Status.Kind {
	case KindNoAck:
		return fmt.Sprintf("i2c: %v (status %#02x)", ErrNoAck, e.Status.Raw)
	case KindBusIdle:
		return fmt.Sprintf("i2c: %v (status %#02x)", ErrBusIdle, e.Status.Raw)
	case KindStuck:
		return fmt.Sprintf("i2c: %v (status %#02x): %v", ErrStuck, e.Status.Raw, e.Err)
	default:
		return fmt.Sprintf("i2c: status %#02x", e.Status.Raw)
	}
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNoAck:
		return e.Status.Kind == KindNoAck
	case ErrBusIdle:
		return e.Status.Kind == KindBusIdle
	case ErrStuck:
		return e.Status.Kind == KindStuck
	}
	return false
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// StatusOf extracts the transaction status from an error returned by a
// controller. A nil error is KindOK. Errors that carry no status are
// reported as KindFailed with a zero snapshot.
func StatusOf(err error) Status {
	if err == nil {
		return Status{Kind: KindOK}
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return Status{Kind: KindFailed}
}

package schedule

// ConfirmState tracks a destructive action that needs two explicit
// confirmations: idle -> pending-first-confirm -> pending-second-confirm -> confirmed.
type ConfirmState int

const (
	Idle ConfirmState = iota
	PendingFirstConfirm
	PendingSecondConfirm
	Confirmed
)

func (s ConfirmState) String() string {
	switch s {
	case PendingFirstConfirm:
		return "pending-first-confirm"
	case PendingSecondConfirm:
		return "pending-second-confirm"
	case Confirmed:
		return "confirmed"
	default:
		return "idle"
	}
}

// Confirmation is driven by user events; it never blocks.
type Confirmation struct {
	state ConfirmState
}

func (c *Confirmation) State() ConfirmState { return c.state }

// Request opens the first prompt. It has no effect once a prompt is open.
func (c *Confirmation) Request() ConfirmState {
	if c.state == Idle {
		c.state = PendingFirstConfirm
	}
	return c.state
}

// Confirm records one affirmative answer.
func (c *Confirmation) Confirm() ConfirmState {
	switch c.state {
	case PendingFirstConfirm:
		c.state = PendingSecondConfirm
	case PendingSecondConfirm:
		c.state = Confirmed
	}
	return c.state
}

// Cancel returns to idle unless the action already went through.
func (c *Confirmation) Cancel() ConfirmState {
	if c.state != Confirmed {
		c.state = Idle
	}
	return c.state
}

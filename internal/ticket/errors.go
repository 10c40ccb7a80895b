package ticket

import "errors"

var (
	// ErrAlreadyOpen is informational: the actor already has a live ticket,
	// returned alongside it.
	ErrAlreadyOpen = errors.New("ticket: already open")
	// ErrNotATicketChannel is returned for close and touch operations on a
	// channel without a live session.
	ErrNotATicketChannel = errors.New("ticket: not a ticket channel")
	// ErrChannelCreateFailed is returned when the platform could not create
	// the ticket channel. No session is left behind.
	ErrChannelCreateFailed = errors.New("ticket: channel creation failed")
	// ErrCooldownViolated is returned when an open request came too soon
	// after the previous one. The actor's tickets have been force-closed.
	ErrCooldownViolated = errors.New("ticket: cooldown violated")
	// ErrSuspendFailed accompanies ErrCooldownViolated when the platform
	// refused to suspend the actor.
	ErrSuspendFailed = errors.New("ticket: suspend failed")
	// ErrInvalidTransition is returned when a confirmation or cancellation
	// arrives for a session that is not pending close.
	ErrInvalidTransition = errors.New("ticket: invalid state transition")
	// ErrOpenAborted is returned when the session was force-closed while its
	// channel was being created. The new channel is deleted.
	ErrOpenAborted = errors.New("ticket: open aborted")
)

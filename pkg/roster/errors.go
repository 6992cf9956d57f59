package roster

import "errors"

var (
	// ErrNoText is returned when a scan has no recognized text at all.
	ErrNoText = errors.New("no text recognized")
	// ErrUnknownSlot is returned by Commit for a slot index outside the roster.
	ErrUnknownSlot = errors.New("unknown roster slot")
	// ErrNoPendingSelection is returned by Commit when the slot has nothing to decide.
	ErrNoPendingSelection = errors.New("no pending selection for slot")
	// ErrInvalidChoice is returned by Commit when the entity is not one of the offered options.
	ErrInvalidChoice = errors.New("choice is not one of the pending options")
)

package booking

import "fmt"

// ValidationError reports malformed or missing input. Client-fixable.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NotFoundError reports an absent referenced entity.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// CapacityExceededError is a business-rule rejection: the bus is full
// or an ordinance slot has no room. Resource and Slot name the thing
// that was full so the caller can show a specific message.
type CapacityExceededError struct {
	Resource string
	Slot     string
}

func (e CapacityExceededError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("%s is full", e.Resource)
	}
	return fmt.Sprintf("no slots available for %s %s", e.Resource, e.Slot)
}

// StateError reports an operation invalid for the registration's
// current lifecycle state.
type StateError struct {
	Msg string
}

func (e StateError) Error() string {
	return e.Msg
}

// ConflictError reports that the retry budget was exhausted under
// write contention on the caravan. Retryable by the caller.
type ConflictError struct {
	Attempts int
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("caravan capacity update conflicted %d times, try again", e.Attempts)
}

package decision

import "errors"

// ErrIllegalTransition is returned when an action is not valid for the
// request's status and the actor's role. Callers map it to 403.
var ErrIllegalTransition = errors.New("illegal transition")

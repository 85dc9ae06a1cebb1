package workflow

import "errors"

var (
	ErrMilestoneNotFound    = errors.New("milestone not found")
	ErrDocumentNotFound     = errors.New("document not found")
	ErrProjectNotFound      = errors.New("project not found")
	ErrProjectConflict      = errors.New("project already open with different parties")
	ErrUnknownActor         = errors.New("actor is not a party to this project")
	ErrNotPermitted         = errors.New("operation not permitted for this actor")
	ErrNegotiationPending   = errors.New("milestone has a pending edit or delete request")
	ErrNoPendingNegotiation = errors.New("milestone has no matching pending request")
	ErrMilestoneCompleted   = errors.New("milestone is completed")
	ErrEmptyMessage         = errors.New("message body is empty")
)

package timetable

import "errors"

var (
	// ErrMalformedInput reports a missing or ill-shaped parameter.
	ErrMalformedInput = errors.New("malformed input")
	// ErrEmptyDomain reports that there are no timeslots or no rooms to assign.
	ErrEmptyDomain = errors.New("empty domain")
	// ErrNoCandidateSlots is returned by the seed generator when it has no
	// timeslot or room to choose from. It matches ErrEmptyDomain.
	ErrNoCandidateSlots = &domainError{msg: "no candidate slots"}
	// ErrDuplicateIdentifier reports two records of one kind sharing an id.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
)

type domainError struct {
	msg string
}

func (e *domainError) Error() string { return e.msg }

func (e *domainError) Is(target error) bool { return target == ErrEmptyDomain }

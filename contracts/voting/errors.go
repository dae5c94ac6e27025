package voting

import "golang.org/x/xerrors"

// Errors returned when a transaction is refused by the contract. They are
// wrapped with the context of the failure and can be matched with xerrors.Is.
var (
	// ErrUnauthorized is returned when the caller is not the owner.
	ErrUnauthorized = xerrors.New("caller is not the owner")

	// ErrInvalidInput is returned for a missing, empty or malformed argument.
	ErrInvalidInput = xerrors.New("invalid input")

	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = xerrors.New("not found")

	ErrAlreadyRegistered = xerrors.New("user already registered")
	ErrAlreadyCandidate  = xerrors.New("already a candidate")
	ErrAlreadyBound      = xerrors.New("candidate already bound to an election")
	ErrAlreadyEnrolled   = xerrors.New("already enrolled")
	ErrAlreadyVoted      = xerrors.New("already voted")

	// ErrInvalidDates is returned when the dates are not strictly increasing,
	// not in the future, or out of range.
	ErrInvalidDates = xerrors.New("invalid dates")

	// ErrInvalidCandidate is returned when a vote targets a candidate that is
	// not part of the election.
	ErrInvalidCandidate = xerrors.New("invalid candidate")

	ErrNotActive      = xerrors.New("election not active")
	ErrNotEnded       = xerrors.New("election not ended")
	ErrAlreadyStarted = xerrors.New("election already started")
	ErrAlreadyEnded   = xerrors.New("election already ended")
	ErrNotEnrolled    = xerrors.New("not enrolled to vote")
	ErrNotApproved    = xerrors.New("not approved")
	ErrNoCandidates   = xerrors.New("election has no candidates")
	ErrNotRegistered  = xerrors.New("user not registered")

	// ErrTooEarly is returned when the results are announced before the
	// announcement date.
	ErrTooEarly = xerrors.New("too early")
)

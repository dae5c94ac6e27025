// Package types defines the entities the voting contract stores in the ledger
// state. They are persisted as JSON values.
package types

import (
	"encoding/json"

	"go.dedis.ch/ballot/core/access"
	"golang.org/x/xerrors"
)

// Phase is the stage of an election in its lifecycle.
type Phase uint8

const (
	// PhaseCreated is the phase of an election that has not been started yet.
	// Candidates can only be added in that phase.
	PhaseCreated Phase = iota

	// PhaseActive is the phase of an election accepting votes.
	PhaseActive

	// PhasePaused is the phase of a started election that temporarily refuses
	// votes.
	PhasePaused

	// PhaseEnded is the final phase of an election. Nothing changes afterwards.
	PhaseEnded
)

var phaseNames = []string{"created", "active", "paused", "ended"}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}

	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if int(p) >= len(phaseNames) {
		return nil, xerrors.Errorf("unknown phase %d", p)
	}

	return []byte(phaseNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}

	return xerrors.Errorf("unknown phase '%s'", text)
}

// User is a participant known by its address. A user is pending until the
// owner approves it.
type User struct {
	Address               access.Address `json:"address"`
	Name                  string         `json:"name"`
	IsRegistered          bool           `json:"isRegistered"`
	IsCandidate           bool           `json:"isCandidate"`
	Approved              bool           `json:"approved"`
	RegisteredElectionIDs []uint64       `json:"registeredElectionIds"`
}

// Candidate is the candidacy of a user. It is bound to at most one election.
type Candidate struct {
	ID          uint64         `json:"candidateId"`
	UserAddress access.Address `json:"userAddress"`
	PartyName   string         `json:"partyName"`
	Symbol      string         `json:"symbol"`
	VoteCount   uint64         `json:"voteCount"`
	ElectionID  uint64         `json:"electionId"`
	Approved    bool           `json:"approved"`
}

// Election is a vote between a list of candidates. Dates are Unix timestamps
// in seconds.
type Election struct {
	ID                 uint64   `json:"electionId"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	CandidateIDs       []uint64 `json:"candidateIds"`
	VotingStartDate    uint64   `json:"votingStartDate"`
	VotingEndDate      uint64   `json:"votingEndDate"`
	ResultAnnounceDate uint64   `json:"resultAnnounceDate"`
	Phase              Phase    `json:"phase"`
	ResultAnnounced    bool     `json:"resultAnnounced"`
	StartedAt          uint64   `json:"startedAt"`
	EndedAt            uint64   `json:"endedAt"`
	VoterCount         uint64   `json:"voterCount"`
}

// IsActive returns true when the election has been started and not ended,
// whether it is paused or not.
func (e Election) IsActive() bool {
	return e.Phase == PhaseActive || e.Phase == PhasePaused
}

// IsPaused returns true when the election is paused.
func (e Election) IsPaused() bool {
	return e.Phase == PhasePaused
}

// IsEnded returns true when the election is over.
func (e Election) IsEnded() bool {
	return e.Phase == PhaseEnded
}

// HasCandidate returns true if the candidate is part of the election.
func (e Election) HasCandidate(id uint64) bool {
	for _, cid := range e.CandidateIDs {
		if cid == id {
			return true
		}
	}

	return false
}

type electionJSON Election

// MarshalJSON implements json.Marshaler. It adds the flags derived from the
// phase so that a client does not need to interpret it.
func (e Election) MarshalJSON() ([]byte, error) {
	m := struct {
		electionJSON
		IsActive bool `json:"isActive"`
		IsEnded  bool `json:"isEnded"`
		Paused   bool `json:"paused"`
	}{
		electionJSON: electionJSON(e),
		IsActive:     e.IsActive(),
		IsEnded:      e.IsEnded(),
		Paused:       e.IsPaused(),
	}

	return json.Marshal(m)
}

// Record is the participation of an address to an election.
type Record struct {
	Enrolled bool `json:"enrolled"`
	HasVoted bool `json:"hasVoted"`
}

// Results are the vote counts of an election, aligned with the candidate
// identifiers in the order the candidates were added.
type Results struct {
	CandidateIDs []uint64 `json:"candidateIds"`
	VoteCounts   []uint64 `json:"voteCounts"`
}

// Total returns the number of votes.
func (r Results) Total() uint64 {
	total := uint64(0)
	for _, count := range r.VoteCounts {
		total += count
	}

	return total
}

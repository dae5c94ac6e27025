package voting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/contracts/voting/types"
	"go.dedis.ch/ballot/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestCommand_RegisterUser(t *testing.T) {
	l := newLedger(t)

	err := l.exec("alice", CmdRegisterUser)
	require.EqualError(t, err, "failed to REGISTER_USER: 'voting:name' is missing or empty: invalid input")
	require.True(t, xerrors.Is(err, ErrInvalidInput))

	err = l.exec("alice", CmdRegisterUser, NameArg, "   ")
	require.True(t, xerrors.Is(err, ErrInvalidInput))

	l.mustExec("alice", CmdRegisterUser, NameArg, "Alice")

	err = l.exec("alice", CmdRegisterUser, NameArg, "Alice again")
	require.True(t, xerrors.Is(err, ErrAlreadyRegistered))

	l.mustExec("owner", CmdApproveUser, AddressArg, addressOf(t, "alice").String())

	err = l.exec("alice", CmdRegisterUser, NameArg, "Alice")
	require.EqualError(t, err, "failed to REGISTER_USER: address "+
		addressOf(t, "alice").String()+": user already registered")
}

func TestCommand_ApproveUser(t *testing.T) {
	l := newLedger(t)
	alice := addressOf(t, "alice")

	l.mustExec("alice", CmdRegisterUser, NameArg, "Alice")

	user, found, err := l.reader().GetUser(alice)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "Alice", user.Name)
	require.False(t, user.IsRegistered)
	require.False(t, user.Approved)

	err = l.exec("bob", CmdApproveUser, AddressArg, alice.String())
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	user, _, err = l.reader().GetUser(alice)
	require.NoError(t, err)
	require.False(t, user.Approved)

	err = l.exec("owner", CmdApproveUser)
	require.True(t, xerrors.Is(err, ErrInvalidInput))

	err = l.exec("owner", CmdApproveUser, AddressArg, "0x1234")
	require.EqualError(t, err, "failed to APPROVE_USER: 'voting:address' is not an address: invalid input")

	err = l.exec("owner", CmdApproveUser, AddressArg, addressOf(t, "bob").String())
	require.True(t, xerrors.Is(err, ErrNotFound))

	l.mustExec("owner", CmdApproveUser, AddressArg, alice.String())

	user, _, err = l.reader().GetUser(alice)
	require.NoError(t, err)
	require.True(t, user.IsRegistered)
	require.True(t, user.Approved)

	err = l.exec("owner", CmdApproveUser, AddressArg, alice.String())
	require.True(t, xerrors.Is(err, ErrNotFound))
}

func TestCommand_RegisterCandidate(t *testing.T) {
	l := newLedger(t)
	alice := addressOf(t, "alice")

	err := l.exec("alice", CmdRegisterCandidate, PartyArg, "Party A", SymbolArg, "A")
	require.True(t, xerrors.Is(err, ErrNotRegistered))

	l.mustExec("alice", CmdRegisterUser, NameArg, "Alice")

	err = l.exec("alice", CmdRegisterCandidate, PartyArg, "Party A", SymbolArg, "A")
	require.True(t, xerrors.Is(err, ErrNotRegistered))

	l.mustExec("owner", CmdApproveUser, AddressArg, alice.String())

	err = l.exec("alice", CmdRegisterCandidate, PartyArg, "Party A")
	require.EqualError(t, err, "failed to REGISTER_CANDIDATE: 'voting:symbol' is missing or empty: invalid input")

	err = l.exec("alice", CmdRegisterCandidate, SymbolArg, "A")
	require.True(t, xerrors.Is(err, ErrInvalidInput))

	l.mustExec("alice", CmdRegisterCandidate, PartyArg, "Party A", SymbolArg, "🦅")

	err = l.exec("alice", CmdRegisterCandidate, PartyArg, "Party B", SymbolArg, "B")
	require.True(t, xerrors.Is(err, ErrAlreadyCandidate))

	candidate, found, err := l.reader().GetCandidate(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.Candidate{
		ID:          1,
		UserAddress: alice,
		PartyName:   "Party A",
		Symbol:      "🦅",
	}, candidate)

	user, _, err := l.reader().GetUser(alice)
	require.NoError(t, err)
	require.True(t, user.IsCandidate)
}

func TestCommand_ApproveCandidate(t *testing.T) {
	l := newLedger(t)
	l.register("alice")
	l.mustExec("alice", CmdRegisterCandidate, PartyArg, "Party A", SymbolArg, "A")

	err := l.exec("alice", CmdApproveCandidate, CandidateArg, "1")
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	err = l.exec("owner", CmdApproveCandidate, CandidateArg, "one")
	require.EqualError(t, err, "failed to APPROVE_CANDIDATE: 'voting:candidate' is not a number: invalid input")

	err = l.exec("owner", CmdApproveCandidate, CandidateArg, "2")
	require.EqualError(t, err, "failed to APPROVE_CANDIDATE: candidate 2: not found")

	pending, err := l.reader().GetPendingCandidates()
	require.NoError(t, err)
	require.Len(t, pending, 1)

	l.mustExec("owner", CmdApproveCandidate, CandidateArg, "1")

	pending, err = l.reader().GetPendingCandidates()
	require.NoError(t, err)
	require.Empty(t, pending)

	// Approving again leaves the candidate unchanged.
	l.mustExec("owner", CmdApproveCandidate, CandidateArg, "1")

	candidate, found, err := l.reader().GetCandidate(1)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, candidate.Approved)
	require.Equal(t, uint64(0), candidate.VoteCount)
}

func TestCommand_CreateElection(t *testing.T) {
	l := newLedger(t)

	args := func(title string, start, end, result uint64) []string {
		return []string{
			TitleArg, title,
			DescriptionArg, "desc",
			StartArg, itoa(start),
			EndArg, itoa(end),
			ResultArg, itoa(result),
		}
	}

	err := l.exec("alice", CmdCreateElection, args("E1", now+1, now+2, now+3)...)
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	err = l.exec("owner", CmdCreateElection, TitleArg, "E1")
	require.True(t, xerrors.Is(err, ErrInvalidInput))

	err = l.exec("owner", CmdCreateElection, args("E1", now, now+2, now+3)...)
	require.EqualError(t, err, "failed to CREATE_ELECTION: voting start date 1600000000 must be in the future: invalid dates")

	err = l.exec("owner", CmdCreateElection, args("E1", now+2, now+2, now+3)...)
	require.True(t, xerrors.Is(err, ErrInvalidDates))

	err = l.exec("owner", CmdCreateElection, args("E1", now+1, now+3, now+2)...)
	require.True(t, xerrors.Is(err, ErrInvalidDates))

	err = l.exec("owner", CmdCreateElection, args("E1", now+1, now+2, MaxTimestamp+1)...)
	require.EqualError(t, err, "failed to CREATE_ELECTION: date 32503680001 is after 32503680000: invalid dates")

	err = l.exec("owner", CmdCreateElection, args("", now+1, now+2, now+3)...)
	require.EqualError(t, err, "failed to CREATE_ELECTION: 'voting:title' is missing or empty: invalid input")

	l.mustExec("owner", CmdCreateElection, args("E1", now+10, now+20, now+30)...)
	l.mustExec("owner", CmdCreateElection, args("E2", now+40, now+50, now+60)...)

	election, found, err := l.reader().GetElection(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.Election{
		ID:                 1,
		Title:              "E1",
		Description:        "desc",
		CandidateIDs:       []uint64{},
		VotingStartDate:    now + 10,
		VotingEndDate:      now + 20,
		ResultAnnounceDate: now + 30,
		Phase:              types.PhaseCreated,
	}, election)

	elections, err := l.reader().GetAllElections()
	require.NoError(t, err)
	require.Len(t, elections, 2)
	require.Equal(t, "E2", elections[1].Title)
	require.Equal(t, uint64(2), elections[1].ID)
}

func TestCommand_AddCandidate(t *testing.T) {
	l := newLedger(t)
	l.register("alice")
	l.register("bob")
	l.mustExec("alice", CmdRegisterCandidate, PartyArg, "Party A", SymbolArg, "A")
	l.createElection("E1")
	l.createElection("E2")

	err := l.exec("alice", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	err = l.exec("owner", CmdAddCandidate, ElectionArg, "3", CandidateArg, "1")
	require.EqualError(t, err, "failed to ADD_CANDIDATE: election 3: not found")

	err = l.exec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "2")
	require.EqualError(t, err, "failed to ADD_CANDIDATE: candidate 2: not found")

	err = l.exec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")
	require.True(t, xerrors.Is(err, ErrNotApproved))

	l.mustExec("owner", CmdApproveCandidate, CandidateArg, "1")
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")

	err = l.exec("owner", CmdAddCandidate, ElectionArg, "2", CandidateArg, "1")
	require.EqualError(t, err, "failed to ADD_CANDIDATE: candidate 1 in election 1: candidate already bound to an election")
	require.True(t, xerrors.Is(err, ErrAlreadyBound))

	l.candidate("bob", "Party B", "B")
	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	err = l.exec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "2")
	require.True(t, xerrors.Is(err, ErrAlreadyStarted))

	l.mustExec("owner", CmdPauseElection, ElectionArg, "1")

	err = l.exec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "2")
	require.True(t, xerrors.Is(err, ErrAlreadyStarted))

	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	err = l.exec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "2")
	require.True(t, xerrors.Is(err, ErrAlreadyEnded))

	election, _, err := l.reader().GetElection(1)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, election.CandidateIDs)

	candidate, _, err := l.reader().GetCandidate(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), candidate.ElectionID)
}

func TestCommand_StartElection(t *testing.T) {
	l := newLedger(t)
	l.register("alice")
	l.candidate("alice", "Party A", "A")
	l.createElection("E1")

	err := l.exec("alice", CmdStartElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	err = l.exec("owner", CmdStartElection, ElectionArg, "2")
	require.True(t, xerrors.Is(err, ErrNotFound))

	err = l.exec("owner", CmdStartElection, ElectionArg, "1")
	require.EqualError(t, err, "failed to START_ELECTION: election 1: election has no candidates")
	require.True(t, xerrors.Is(err, ErrNoCandidates))

	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")

	l.time = now + 5
	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	election, _, err := l.reader().GetElection(1)
	require.NoError(t, err)
	require.Equal(t, types.PhaseActive, election.Phase)
	require.True(t, election.IsActive())
	require.Equal(t, now+5, election.StartedAt)

	err = l.exec("owner", CmdStartElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrAlreadyStarted))

	l.mustExec("owner", CmdPauseElection, ElectionArg, "1")

	err = l.exec("owner", CmdStartElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrAlreadyStarted))

	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	err = l.exec("owner", CmdStartElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrAlreadyEnded))
}

func TestCommand_PauseElection(t *testing.T) {
	l := newLedger(t)
	l.register("alice")
	l.register("bob")
	l.candidate("alice", "Party A", "A")
	l.createElection("E1")
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")
	l.mustExec("bob", CmdEnroll, ElectionArg, "1")

	err := l.exec("owner", CmdPauseElection, ElectionArg, "1")
	require.EqualError(t, err, "failed to PAUSE_ELECTION: election 1: election not active")

	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	err = l.exec("alice", CmdPauseElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	l.mustExec("owner", CmdPauseElection, ElectionArg, "1")

	election, _, err := l.reader().GetElection(1)
	require.NoError(t, err)
	require.Equal(t, types.PhasePaused, election.Phase)
	require.True(t, election.IsActive())
	require.True(t, election.IsPaused())

	err = l.exec("bob", CmdVote, ElectionArg, "1", CandidateArg, "1")
	require.EqualError(t, err, "failed to VOTE: election 1 is paused: election not active")

	l.mustExec("owner", CmdPauseElection, ElectionArg, "1")
	l.mustExec("bob", CmdVote, ElectionArg, "1", CandidateArg, "1")

	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	err = l.exec("owner", CmdPauseElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrAlreadyEnded))
}

func TestCommand_EndElection(t *testing.T) {
	l := newLedger(t)
	l.register("alice")
	l.candidate("alice", "Party A", "A")
	l.createElection("E1")
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")

	err := l.exec("owner", CmdEndElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrNotActive))

	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	err = l.exec("alice", CmdEndElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	l.time = now + 250
	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	election, _, err := l.reader().GetElection(1)
	require.NoError(t, err)
	require.True(t, election.IsEnded())
	require.False(t, election.IsActive())
	require.Equal(t, now+250, election.EndedAt)

	err = l.exec("owner", CmdEndElection, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrNotActive))
}

func TestCommand_UpdateDates(t *testing.T) {
	l := newLedger(t)
	l.register("alice")
	l.candidate("alice", "Party A", "A")
	l.createElection("E1")

	dates := func(start, end, result uint64) []string {
		return []string{
			ElectionArg, "1",
			StartArg, itoa(start),
			EndArg, itoa(end),
			ResultArg, itoa(result),
		}
	}

	err := l.exec("alice", CmdUpdateDates, dates(now+1, now+2, now+3)...)
	require.True(t, xerrors.Is(err, ErrUnauthorized))

	err = l.exec("owner", CmdUpdateDates, ElectionArg, "1", StartArg, "1")
	require.True(t, xerrors.Is(err, ErrInvalidInput))

	err = l.exec("owner", CmdUpdateDates, dates(now+5, now+4, now+6)...)
	require.True(t, xerrors.Is(err, ErrInvalidDates))

	err = l.exec("owner", CmdUpdateDates, dates(now-5, now+4, now+6)...)
	require.True(t, xerrors.Is(err, ErrInvalidDates))

	l.mustExec("owner", CmdUpdateDates, dates(now+1000, now+2000, now+3000)...)

	election, _, err := l.reader().GetElection(1)
	require.NoError(t, err)
	require.Equal(t, now+1000, election.VotingStartDate)
	require.Equal(t, now+2000, election.VotingEndDate)
	require.Equal(t, now+3000, election.ResultAnnounceDate)

	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")
	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	// A started election keeps its start date in the past.
	l.mustExec("owner", CmdUpdateDates, dates(now-10, now+20, now+30)...)

	err = l.exec("owner", CmdUpdateDates, dates(now-10, now, now+30)...)
	require.EqualError(t, err, "failed to UPDATE_DATES: voting end date 1600000000 must be in the future: invalid dates")

	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	err = l.exec("owner", CmdUpdateDates, dates(now+1, now+2, now+3)...)
	require.True(t, xerrors.Is(err, ErrAlreadyEnded))
}

func TestCommand_Enroll(t *testing.T) {
	l := newLedger(t)
	bob := addressOf(t, "bob")

	l.register("alice")
	l.candidate("alice", "Party A", "A")
	l.createElection("E1")

	err := l.exec("bob", CmdEnroll, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrNotApproved))

	l.mustExec("bob", CmdRegisterUser, NameArg, "Bob")

	err = l.exec("bob", CmdEnroll, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrNotApproved))

	l.mustExec("owner", CmdApproveUser, AddressArg, bob.String())

	err = l.exec("bob", CmdEnroll, ElectionArg, "2")
	require.True(t, xerrors.Is(err, ErrNotFound))

	enrolled, err := l.reader().IsEnrolled(1, bob)
	require.NoError(t, err)
	require.False(t, enrolled)

	l.mustExec("bob", CmdEnroll, ElectionArg, "1")

	err = l.exec("bob", CmdEnroll, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrAlreadyEnrolled))

	enrolled, err = l.reader().IsEnrolled(1, bob)
	require.NoError(t, err)
	require.True(t, enrolled)

	user, _, err := l.reader().GetUser(bob)
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, user.RegisteredElectionIDs)

	election, _, err := l.reader().GetElection(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), election.VoterCount)

	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")
	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	// Enrollment stays open while the election runs.
	l.mustExec("alice", CmdEnroll, ElectionArg, "1")

	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	l.register("carol")

	err = l.exec("carol", CmdEnroll, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrAlreadyEnded))
}

func TestCommand_Vote(t *testing.T) {
	l := newLedger(t)
	l.register("alice")
	l.register("bob")
	l.register("carol")
	l.candidate("alice", "Party A", "A")
	l.candidate("carol", "Party C", "C")
	l.createElection("E1")
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")

	err := l.exec("bob", CmdVote, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrInvalidInput))

	err = l.exec("bob", CmdVote, ElectionArg, "2", CandidateArg, "1")
	require.True(t, xerrors.Is(err, ErrNotFound))

	err = l.exec("bob", CmdVote, ElectionArg, "1", CandidateArg, "1")
	require.EqualError(t, err, "failed to VOTE: election 1 is created: election not active")

	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	err = l.exec("bob", CmdVote, ElectionArg, "1", CandidateArg, "1")
	require.EqualError(t, err, "failed to VOTE: election 1: not enrolled to vote")

	l.mustExec("bob", CmdEnroll, ElectionArg, "1")

	err = l.exec("bob", CmdVote, ElectionArg, "1", CandidateArg, "2")
	require.EqualError(t, err, "failed to VOTE: candidate 2 in election 1: invalid candidate")

	err = l.exec("bob", CmdVote, ElectionArg, "1", CandidateArg, "3")
	require.True(t, xerrors.Is(err, ErrInvalidCandidate))

	l.mustExec("bob", CmdVote, ElectionArg, "1", CandidateArg, "1")

	voted, err := l.reader().HasVoted(1, addressOf(t, "bob"))
	require.NoError(t, err)
	require.True(t, voted)

	err = l.exec("bob", CmdVote, ElectionArg, "1", CandidateArg, "1")
	require.EqualError(t, err, "failed to VOTE: election 1: already voted")

	candidate, _, err := l.reader().GetCandidate(1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), candidate.VoteCount)
}

func TestCommand_UpdateState(t *testing.T) {
	l := newLedger(t)
	l.register("alice")
	l.candidate("alice", "Party A", "A")
	l.createElection("E1")
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")

	err := l.exec("bob", CmdUpdateState, ElectionArg, "2")
	require.True(t, xerrors.Is(err, ErrNotFound))

	err = l.exec("bob", CmdUpdateState, ElectionArg, "1")
	require.True(t, xerrors.Is(err, ErrNotEnded))

	l.mustExec("owner", CmdStartElection, ElectionArg, "1")
	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	err = l.exec("bob", CmdUpdateState, ElectionArg, "1")
	require.EqualError(t, err, "failed to UPDATE_STATE: results of election 1 announced at 1600000300: too early")

	l.time = now + 300
	l.mustExec("bob", CmdUpdateState, ElectionArg, "1")

	election, _, err := l.reader().GetElection(1)
	require.NoError(t, err)
	require.True(t, election.ResultAnnounced)

	l.mustExec("alice", CmdUpdateState, ElectionArg, "1")
}

func TestCommand_StorageFailures(t *testing.T) {
	contract := NewContract()

	step := makeStep(t, "alice", now, CmdArg, string(CmdRegisterUser), NameArg, "Alice")

	err := contract.Execute(fake.NewBadSnapshot(), step)
	require.EqualError(t, err, fake.Err("failed to REGISTER_USER: failed to read user"))

	err = contract.Execute(fake.NewBadWriteSnapshot(), step)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to set 'user:")
	require.True(t, strings.HasSuffix(err.Error(), fake.GetError().Error()))
	require.False(t, xerrors.Is(err, ErrInvalidInput))

	step = makeStep(t, "owner", now, CmdArg, string(CmdStartElection), ElectionArg, "1")

	err = contract.Execute(fake.NewBadSnapshot(), step)
	require.EqualError(t, err, fake.Err("failed to START_ELECTION: failed to read owner"))
}

// Scenario of a complete election: registrations, candidacy, voting and
// results.
func TestScenario_FullElection(t *testing.T) {
	l := newLedger(t)
	alice := addressOf(t, "alice")
	bob := addressOf(t, "bob")

	l.mustExec("alice", CmdRegisterUser, NameArg, "Alice")
	l.mustExec("bob", CmdRegisterUser, NameArg, "Bob")

	pending, err := l.reader().GetPendingUsers()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.Equal(t, alice, pending[0].Address)
	require.Equal(t, bob, pending[1].Address)

	l.mustExec("owner", CmdApproveUser, AddressArg, alice.String())
	l.mustExec("owner", CmdApproveUser, AddressArg, bob.String())

	pending, err = l.reader().GetPendingUsers()
	require.NoError(t, err)
	require.Empty(t, pending)

	l.mustExec("alice", CmdRegisterCandidate, PartyArg, "Party A", SymbolArg, "🦅")
	l.mustExec("owner", CmdApproveCandidate, CandidateArg, "1")

	l.createElection("E1")
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")
	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	_, err = l.reader().GetElectionResults(1)
	require.True(t, xerrors.Is(err, ErrNotEnded))

	l.mustExec("bob", CmdEnroll, ElectionArg, "1")
	l.mustExec("bob", CmdVote, ElectionArg, "1", CandidateArg, "1")

	err = l.exec("bob", CmdVote, ElectionArg, "1", CandidateArg, "1")
	require.True(t, xerrors.Is(err, ErrAlreadyVoted))

	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	res, err := l.reader().GetElectionResults(1)
	require.NoError(t, err)
	require.Equal(t, types.Results{
		CandidateIDs: []uint64{1},
		VoteCounts:   []uint64{1},
	}, res)
}

func TestScenario_ResultsOrder(t *testing.T) {
	l := newLedger(t)
	voters := []string{"v1", "v2", "v3", "v4", "v5"}

	for _, name := range append([]string{"alice", "bob", "carol"}, voters...) {
		l.register(name)
	}

	l.candidate("alice", "Party A", "A")
	l.candidate("bob", "Party B", "B")
	l.candidate("carol", "Party C", "C")

	l.createElection("E1")

	// Insertion order differs from the identifiers.
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "3")
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "1")
	l.mustExec("owner", CmdAddCandidate, ElectionArg, "1", CandidateArg, "2")
	l.mustExec("owner", CmdStartElection, ElectionArg, "1")

	choices := []string{"2", "2", "1", "2", "3"}
	for i, name := range voters {
		l.mustExec(name, CmdEnroll, ElectionArg, "1")
		l.mustExec(name, CmdVote, ElectionArg, "1", CandidateArg, choices[i])
	}

	l.mustExec("owner", CmdEndElection, ElectionArg, "1")

	res, err := l.reader().GetElectionResults(1)
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 1, 2}, res.CandidateIDs)
	require.Equal(t, []uint64{1, 1, 3}, res.VoteCounts)
	require.Equal(t, uint64(len(voters)), res.Total())
}

func TestCheckDates(t *testing.T) {
	require.NoError(t, checkDates(10, 11, 12, 13, true))
	require.NoError(t, checkDates(10, 5, 12, 13, false))
	require.True(t, xerrors.Is(checkDates(10, 5, 12, 13, true), ErrInvalidDates))
	require.True(t, xerrors.Is(checkDates(10, 11, 11, 13, true), ErrInvalidDates))
	require.True(t, xerrors.Is(checkDates(10, 11, 12, 12, true), ErrInvalidDates))
	require.True(t, xerrors.Is(checkDates(10, 11, 12, MaxTimestamp+1, true), ErrInvalidDates))
	require.True(t, xerrors.Is(checkDates(15, 5, 12, 20, false), ErrInvalidDates))
}

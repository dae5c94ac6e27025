// Package voting implements the native contract of the ledger that handles the
// registration of the users and the candidates, the lifecycle of the elections
// and the votes.
//
// The owner of the contract is set at the creation of the chain and is the
// only one allowed to approve users and candidates, and to manage the
// elections. A command is refused when one of its preconditions does not
// hold, in which case the state is left untouched.
package voting

import (
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/store"
	"golang.org/x/xerrors"
)

// MaxTimestamp is the largest date accepted, the first of January 3000. A
// larger value is most likely expressed in milliseconds.
const MaxTimestamp = 32503680000

// commands defines the commands of the voting contract. This interface helps
// in testing the contract.
type commands interface {
	registerUser(snap store.Snapshot, step execution.Step) error
	approveUser(snap store.Snapshot, step execution.Step) error
	registerCandidate(snap store.Snapshot, step execution.Step) error
	approveCandidate(snap store.Snapshot, step execution.Step) error
	createElection(snap store.Snapshot, step execution.Step) error
	addCandidate(snap store.Snapshot, step execution.Step) error
	startElection(snap store.Snapshot, step execution.Step) error
	pauseElection(snap store.Snapshot, step execution.Step) error
	endElection(snap store.Snapshot, step execution.Step) error
	updateDates(snap store.Snapshot, step execution.Step) error
	enroll(snap store.Snapshot, step execution.Step) error
	vote(snap store.Snapshot, step execution.Step) error
	updateState(snap store.Snapshot, step execution.Step) error
}

const (
	// ContractName is the name of the contract.
	ContractName = "go.dedis.ch/ballot.Voting"

	// CmdArg is the argument's name to indicate the kind of command we want to
	// run on the contract. Should be one of the Command type.
	CmdArg = "voting:command"

	// NameArg is the argument's name for the name of a user.
	NameArg = "voting:name"

	// PartyArg is the argument's name for the party of a candidate.
	PartyArg = "voting:party"

	// SymbolArg is the argument's name for the symbol of a candidate.
	SymbolArg = "voting:symbol"

	// AddressArg is the argument's name for the address of a user.
	AddressArg = "voting:address"

	// ElectionArg is the argument's name for the decimal identifier of an
	// election.
	ElectionArg = "voting:election"

	// CandidateArg is the argument's name for the decimal identifier of a
	// candidate.
	CandidateArg = "voting:candidate"

	TitleArg       = "voting:title"
	DescriptionArg = "voting:description"

	// StartArg, EndArg and ResultArg are the argument's names of the dates of
	// an election, as decimal Unix timestamps in seconds.
	StartArg  = "voting:start"
	EndArg    = "voting:end"
	ResultArg = "voting:result"
)

// Command defines a type of command for the voting contract.
type Command string

const (
	// CmdRegisterUser defines the command to request the registration of the
	// caller.
	CmdRegisterUser Command = "REGISTER_USER"

	// CmdApproveUser defines the command to approve a pending user.
	CmdApproveUser Command = "APPROVE_USER"

	// CmdRegisterCandidate defines the command to request the candidacy of
	// the caller.
	CmdRegisterCandidate Command = "REGISTER_CANDIDATE"

	// CmdApproveCandidate defines the command to approve a pending candidate.
	CmdApproveCandidate Command = "APPROVE_CANDIDATE"

	// CmdCreateElection defines the command to create an election.
	CmdCreateElection Command = "CREATE_ELECTION"

	// CmdAddCandidate defines the command to bind a candidate to an election.
	CmdAddCandidate Command = "ADD_CANDIDATE"

	// CmdStartElection defines the command to open the votes of an election.
	CmdStartElection Command = "START_ELECTION"

	// CmdPauseElection defines the command to pause or resume an election.
	CmdPauseElection Command = "PAUSE_ELECTION"

	// CmdEndElection defines the command to close an election for good.
	CmdEndElection Command = "END_ELECTION"

	// CmdUpdateDates defines the command to change the dates of an election.
	CmdUpdateDates Command = "UPDATE_DATES"

	// CmdEnroll defines the command to enroll the caller in an election.
	CmdEnroll Command = "ENROLL"

	// CmdVote defines the command to vote for a candidate of an election.
	CmdVote Command = "VOTE"

	// CmdUpdateState defines the command to announce the results of an ended
	// election once the announcement date is reached.
	CmdUpdateState Command = "UPDATE_STATE"
)

// RegisterContract registers the voting contract to the given execution
// service.
func RegisterContract(exec *native.Service, c Contract) {
	exec.Set(ContractName, c)
}

// Initialize sets the owner of the contract in the snapshot. It is meant to be
// applied once, when the chain is created.
func Initialize(snap store.Snapshot, owner access.Address) error {
	if owner == "" {
		return xerrors.New("missing owner")
	}

	s := newState(snap)

	current, err := s.GetOwner()
	if err != nil {
		return err
	}

	if current != "" {
		return xerrors.Errorf("owner already set to %s", current)
	}

	err = s.w.Set(ownerKey, []byte(owner))
	if err != nil {
		return xerrors.Errorf("failed to set owner: %v", err)
	}

	return nil
}

// Contract is the voting smart contract.
//
// - implements native.Contract
type Contract struct {
	// cmd provides the commands executions
	cmd commands

	logger zerolog.Logger
}

// NewContract creates a new voting contract.
func NewContract() Contract {
	contract := Contract{
		logger: ballot.Logger.With().Str("contract", "voting").Logger(),
	}

	contract.cmd = votingCommand{Contract: &contract}

	return contract
}

// Execute implements native.Contract. It runs the appropriate command.
func (c Contract) Execute(snap store.Snapshot, step execution.Step) error {
	cmd := step.Current.GetArg(CmdArg)
	if len(cmd) == 0 {
		return xerrors.Errorf("'%s' not found in tx arg", CmdArg)
	}

	var fn func(store.Snapshot, execution.Step) error

	switch Command(cmd) {
	case CmdRegisterUser:
		fn = c.cmd.registerUser
	case CmdApproveUser:
		fn = c.cmd.approveUser
	case CmdRegisterCandidate:
		fn = c.cmd.registerCandidate
	case CmdApproveCandidate:
		fn = c.cmd.approveCandidate
	case CmdCreateElection:
		fn = c.cmd.createElection
	case CmdAddCandidate:
		fn = c.cmd.addCandidate
	case CmdStartElection:
		fn = c.cmd.startElection
	case CmdPauseElection:
		fn = c.cmd.pauseElection
	case CmdEndElection:
		fn = c.cmd.endElection
	case CmdUpdateDates:
		fn = c.cmd.updateDates
	case CmdEnroll:
		fn = c.cmd.enroll
	case CmdVote:
		fn = c.cmd.vote
	case CmdUpdateState:
		fn = c.cmd.updateState
	default:
		return xerrors.Errorf("unknown command: %s", cmd)
	}

	err := fn(snap, step)
	if err != nil {
		return xerrors.Errorf("failed to %s: %w", cmd, err)
	}

	return nil
}

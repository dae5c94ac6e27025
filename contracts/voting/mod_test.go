package voting

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/mem"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestRegisterContract(t *testing.T) {
	exec := native.NewExecution()

	RegisterContract(exec, NewContract())
	require.Equal(t, []string{ContractName}, exec.GetContracts())
}

func TestInitialize(t *testing.T) {
	snap := mem.NewSnapshot(nil)

	err := Initialize(snap, "")
	require.EqualError(t, err, "missing owner")

	owner := addressOf(t, "owner")

	err = Initialize(snap, owner)
	require.NoError(t, err)

	res, err := NewReader(snap).GetOwner()
	require.NoError(t, err)
	require.Equal(t, owner, res)

	err = Initialize(snap, addressOf(t, "alice"))
	require.EqualError(t, err, "owner already set to "+owner.String())

	err = Initialize(fake.NewBadSnapshot(), owner)
	require.EqualError(t, err, fake.Err("failed to read owner"))

	err = Initialize(fake.NewBadWriteSnapshot(), owner)
	require.EqualError(t, err, fake.Err("failed to set owner"))
}

func TestContract_Execute(t *testing.T) {
	contract := NewContract()

	err := contract.Execute(fake.NewSnapshot(), makeStep(t, "alice", 0))
	require.EqualError(t, err, "'voting:command' not found in tx arg")

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, "alice", 0, CmdArg, "fake"))
	require.EqualError(t, err, "unknown command: fake")

	contract.cmd = fakeCmd{err: fake.GetError()}

	cmds := []Command{
		CmdRegisterUser, CmdApproveUser, CmdRegisterCandidate, CmdApproveCandidate,
		CmdCreateElection, CmdAddCandidate, CmdStartElection, CmdPauseElection,
		CmdEndElection, CmdUpdateDates, CmdEnroll, CmdVote, CmdUpdateState,
	}

	for _, cmd := range cmds {
		err = contract.Execute(fake.NewSnapshot(), makeStep(t, "alice", 0, CmdArg, string(cmd)))
		require.EqualError(t, err, fake.Err("failed to "+string(cmd)))
	}

	contract.cmd = fakeCmd{err: xerrors.Errorf("election 1: %w", ErrAlreadyVoted)}

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, "alice", 0, CmdArg, string(CmdVote)))
	require.EqualError(t, err, "failed to VOTE: election 1: already voted")
	require.True(t, xerrors.Is(err, ErrAlreadyVoted))

	contract.cmd = fakeCmd{}

	err = contract.Execute(fake.NewSnapshot(), makeStep(t, "alice", 0, CmdArg, string(CmdVote)))
	require.NoError(t, err)
}

// -----------------------------------------------------------------------------
// Utility functions

const now = uint64(1600000000)

func addressOf(t *testing.T, name string) access.Address {
	addr, err := access.AddressOf(fake.NewPublicKey(name))
	require.NoError(t, err)

	return addr
}

func makeStep(t *testing.T, signer string, timestamp uint64, args ...string) execution.Step {
	opts := make([]signed.TransactionOption, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		opts = append(opts, signed.WithArg(args[i], []byte(args[i+1])))
	}

	tx, err := signed.NewTransaction(0, fake.NewPublicKey(signer), opts...)
	require.NoError(t, err)

	return execution.Step{Current: tx, Timestamp: timestamp}
}

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// ledger executes the commands of the contract on an in-memory state and
// verifies that a refused command leaves the state untouched.
type ledger struct {
	t        *testing.T
	snap     *mem.Snapshot
	contract Contract
	time     uint64
}

func newLedger(t *testing.T) *ledger {
	l := &ledger{
		t:        t,
		snap:     mem.NewSnapshot(nil),
		contract: NewContract(),
		time:     now,
	}

	require.NoError(t, Initialize(l.snap, addressOf(t, "owner")))

	return l
}

func (l *ledger) exec(signer string, cmd Command, args ...string) error {
	step := makeStep(l.t, signer, l.time, append([]string{CmdArg, string(cmd)}, args...)...)

	before := fingerprint(l.t, l.snap)

	err := l.contract.Execute(l.snap, step)
	if err != nil {
		require.Equal(l.t, before, fingerprint(l.t, l.snap), "state changed by a refused command")
	}

	return err
}

func (l *ledger) mustExec(signer string, cmd Command, args ...string) {
	require.NoError(l.t, l.exec(signer, cmd, args...))
}

func (l *ledger) reader() Reader {
	return NewReader(l.snap)
}

func (l *ledger) register(name string) {
	l.mustExec(name, CmdRegisterUser, NameArg, name)
	l.mustExec("owner", CmdApproveUser, AddressArg, addressOf(l.t, name).String())
}

func (l *ledger) candidate(name, party, symbol string) {
	l.mustExec(name, CmdRegisterCandidate, PartyArg, party, SymbolArg, symbol)

	c, found, err := l.reader().GetCandidateOf(addressOf(l.t, name))
	require.NoError(l.t, err)
	require.True(l.t, found)

	l.mustExec("owner", CmdApproveCandidate, CandidateArg, itoa(c.ID))
}

func (l *ledger) createElection(title string) {
	l.mustExec("owner", CmdCreateElection,
		TitleArg, title,
		DescriptionArg, "description of "+title,
		StartArg, itoa(l.time+100),
		EndArg, itoa(l.time+200),
		ResultArg, itoa(l.time+300))
}

func fingerprint(t *testing.T, snap *mem.Snapshot) []byte {
	buf := new(bytes.Buffer)
	require.NoError(t, snap.Fingerprint(buf))

	return buf.Bytes()
}

type fakeCmd struct {
	err error
}

func (c fakeCmd) registerUser(store.Snapshot, execution.Step) error      { return c.err }
func (c fakeCmd) approveUser(store.Snapshot, execution.Step) error       { return c.err }
func (c fakeCmd) registerCandidate(store.Snapshot, execution.Step) error { return c.err }
func (c fakeCmd) approveCandidate(store.Snapshot, execution.Step) error  { return c.err }
func (c fakeCmd) createElection(store.Snapshot, execution.Step) error    { return c.err }
func (c fakeCmd) addCandidate(store.Snapshot, execution.Step) error      { return c.err }
func (c fakeCmd) startElection(store.Snapshot, execution.Step) error     { return c.err }
func (c fakeCmd) pauseElection(store.Snapshot, execution.Step) error     { return c.err }
func (c fakeCmd) endElection(store.Snapshot, execution.Step) error       { return c.err }
func (c fakeCmd) updateDates(store.Snapshot, execution.Step) error       { return c.err }
func (c fakeCmd) enroll(store.Snapshot, execution.Step) error            { return c.err }
func (c fakeCmd) vote(store.Snapshot, execution.Step) error              { return c.err }
func (c fakeCmd) updateState(store.Snapshot, execution.Step) error       { return c.err }

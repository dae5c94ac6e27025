package voting

import (
	"encoding/binary"
	"encoding/json"
	"strconv"
	"strings"

	"go.dedis.ch/ballot/contracts/voting/types"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/prefixed"
	"golang.org/x/xerrors"
)

// votingCommand implements the commands of the voting contract. Every
// precondition is verified before the first write to the snapshot.
//
// - implements commands
type votingCommand struct {
	*Contract
}

// registerUser implements commands. It creates a pending user for the caller.
func (c votingCommand) registerUser(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	caller, err := callerOf(step)
	if err != nil {
		return err
	}

	name, err := stringArg(step, NameArg)
	if err != nil {
		return err
	}

	_, found, err := s.GetUser(caller)
	if err != nil {
		return err
	}

	if found {
		return xerrors.Errorf("address %s: %w", caller, ErrAlreadyRegistered)
	}

	var addrs []access.Address

	_, err = s.getJSON(usersKey, &addrs)
	if err != nil {
		return xerrors.Errorf("failed to read users: %v", err)
	}

	user := types.User{
		Address:               caller,
		Name:                  name,
		RegisteredElectionIDs: []uint64{},
	}

	err = s.setJSON(userKey(caller), user)
	if err != nil {
		return err
	}

	err = s.setJSON(usersKey, append(addrs, caller))
	if err != nil {
		return err
	}

	c.logger.Info().Str("address", caller.String()).Msg("user registration requested")

	return nil
}

// approveUser implements commands. It approves the user of the address given
// in the arguments.
func (c votingCommand) approveUser(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	err := s.checkOwner(step)
	if err != nil {
		return err
	}

	addr, err := addressArg(step, AddressArg)
	if err != nil {
		return err
	}

	user, found, err := s.GetUser(addr)
	if err != nil {
		return err
	}

	if !found || user.Approved {
		return xerrors.Errorf("no pending user %s: %w", addr, ErrNotFound)
	}

	user.IsRegistered = true
	user.Approved = true

	err = s.setJSON(userKey(addr), user)
	if err != nil {
		return err
	}

	c.logger.Info().Str("address", addr.String()).Msg("user approved")

	return nil
}

// registerCandidate implements commands. It creates a pending candidacy for
// the caller which must be an approved user.
func (c votingCommand) registerCandidate(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	caller, err := callerOf(step)
	if err != nil {
		return err
	}

	user, found, err := s.GetUser(caller)
	if err != nil {
		return err
	}

	if !found || !user.Approved {
		return xerrors.Errorf("address %s: %w", caller, ErrNotRegistered)
	}

	if user.IsCandidate {
		return xerrors.Errorf("address %s: %w", caller, ErrAlreadyCandidate)
	}

	party, err := stringArg(step, PartyArg)
	if err != nil {
		return err
	}

	symbol, err := stringArg(step, SymbolArg)
	if err != nil {
		return err
	}

	count, err := s.getCounter(candidateCountKey)
	if err != nil {
		return xerrors.Errorf("failed to read counter: %v", err)
	}

	candidate := types.Candidate{
		ID:          count + 1,
		UserAddress: caller,
		PartyName:   party,
		Symbol:      symbol,
	}

	user.IsCandidate = true

	err = s.setJSON(candidateKey(candidate.ID), candidate)
	if err != nil {
		return err
	}

	err = s.setCounter(candidateCountKey, candidate.ID)
	if err != nil {
		return err
	}

	err = s.setCounter(candidacyKey(caller), candidate.ID)
	if err != nil {
		return err
	}

	err = s.setJSON(userKey(caller), user)
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("address", caller.String()).
		Uint64("candidate", candidate.ID).
		Msg("candidate registration requested")

	return nil
}

// approveCandidate implements commands. It approves the candidacy; approving it
// again changes nothing.
func (c votingCommand) approveCandidate(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	err := s.checkOwner(step)
	if err != nil {
		return err
	}

	id, err := uintArg(step, CandidateArg)
	if err != nil {
		return err
	}

	candidate, err := s.mustCandidate(id)
	if err != nil {
		return err
	}

	candidate.Approved = true

	err = s.setJSON(candidateKey(id), candidate)
	if err != nil {
		return err
	}

	c.logger.Info().Uint64("candidate", id).Msg("candidate approved")

	return nil
}

// createElection implements commands. It creates an election that has yet to
// be started.
func (c votingCommand) createElection(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	err := s.checkOwner(step)
	if err != nil {
		return err
	}

	start, end, result, err := datesArg(step)
	if err != nil {
		return err
	}

	err = checkDates(step.Timestamp, start, end, result, true)
	if err != nil {
		return err
	}

	title, err := stringArg(step, TitleArg)
	if err != nil {
		return err
	}

	desc, err := stringArg(step, DescriptionArg)
	if err != nil {
		return err
	}

	count, err := s.getCounter(electionCountKey)
	if err != nil {
		return xerrors.Errorf("failed to read counter: %v", err)
	}

	election := types.Election{
		ID:                 count + 1,
		Title:              title,
		Description:        desc,
		CandidateIDs:       []uint64{},
		VotingStartDate:    start,
		VotingEndDate:      end,
		ResultAnnounceDate: result,
		Phase:              types.PhaseCreated,
	}

	err = s.setJSON(electionKey(election.ID), election)
	if err != nil {
		return err
	}

	err = s.setCounter(electionCountKey, election.ID)
	if err != nil {
		return err
	}

	c.logger.Info().Uint64("election", election.ID).Msg("election created")

	return nil
}

// addCandidate implements commands. It binds an approved candidate to an
// election that has not been started.
func (c votingCommand) addCandidate(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	err := s.checkOwner(step)
	if err != nil {
		return err
	}

	eid, err := uintArg(step, ElectionArg)
	if err != nil {
		return err
	}

	cid, err := uintArg(step, CandidateArg)
	if err != nil {
		return err
	}

	election, err := s.mustElection(eid)
	if err != nil {
		return err
	}

	candidate, err := s.mustCandidate(cid)
	if err != nil {
		return err
	}

	if !candidate.Approved {
		return xerrors.Errorf("candidate %d: %w", cid, ErrNotApproved)
	}

	switch election.Phase {
	case types.PhaseEnded:
		return xerrors.Errorf("election %d: %w", eid, ErrAlreadyEnded)
	case types.PhaseActive, types.PhasePaused:
		return xerrors.Errorf("election %d: %w", eid, ErrAlreadyStarted)
	}

	if candidate.ElectionID != 0 {
		return xerrors.Errorf("candidate %d in election %d: %w",
			cid, candidate.ElectionID, ErrAlreadyBound)
	}

	election.CandidateIDs = append(election.CandidateIDs, cid)
	candidate.ElectionID = eid

	err = s.setJSON(electionKey(eid), election)
	if err != nil {
		return err
	}

	err = s.setJSON(candidateKey(cid), candidate)
	if err != nil {
		return err
	}

	c.logger.Info().Uint64("election", eid).Uint64("candidate", cid).Msg("candidate added")

	return nil
}

// startElection implements commands. It opens the votes of an election with
// at least one candidate.
func (c votingCommand) startElection(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	election, err := s.ownedElection(step)
	if err != nil {
		return err
	}

	switch election.Phase {
	case types.PhaseEnded:
		return xerrors.Errorf("election %d: %w", election.ID, ErrAlreadyEnded)
	case types.PhaseActive, types.PhasePaused:
		return xerrors.Errorf("election %d: %w", election.ID, ErrAlreadyStarted)
	}

	if len(election.CandidateIDs) == 0 {
		return xerrors.Errorf("election %d: %w", election.ID, ErrNoCandidates)
	}

	election.Phase = types.PhaseActive
	election.StartedAt = step.Timestamp

	err = s.setJSON(electionKey(election.ID), election)
	if err != nil {
		return err
	}

	c.logger.Info().Uint64("election", election.ID).Msg("election started")

	return nil
}

// pauseElection implements commands. It pauses an active election, or resumes
// it when it is already paused.
func (c votingCommand) pauseElection(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	election, err := s.ownedElection(step)
	if err != nil {
		return err
	}

	switch election.Phase {
	case types.PhaseEnded:
		return xerrors.Errorf("election %d: %w", election.ID, ErrAlreadyEnded)
	case types.PhaseCreated:
		return xerrors.Errorf("election %d: %w", election.ID, ErrNotActive)
	case types.PhaseActive:
		election.Phase = types.PhasePaused
	case types.PhasePaused:
		election.Phase = types.PhaseActive
	}

	err = s.setJSON(electionKey(election.ID), election)
	if err != nil {
		return err
	}

	c.logger.Info().
		Uint64("election", election.ID).
		Stringer("phase", election.Phase).
		Msg("election pause toggled")

	return nil
}

// endElection implements commands. It closes a started election.
func (c votingCommand) endElection(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	election, err := s.ownedElection(step)
	if err != nil {
		return err
	}

	if !election.IsActive() {
		return xerrors.Errorf("election %d: %w", election.ID, ErrNotActive)
	}

	election.Phase = types.PhaseEnded
	election.EndedAt = step.Timestamp

	err = s.setJSON(electionKey(election.ID), election)
	if err != nil {
		return err
	}

	c.logger.Info().Uint64("election", election.ID).Msg("election ended")

	return nil
}

// updateDates implements commands. It replaces the dates of an election that
// is not ended.
func (c votingCommand) updateDates(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	election, err := s.ownedElection(step)
	if err != nil {
		return err
	}

	start, end, result, err := datesArg(step)
	if err != nil {
		return err
	}

	if election.IsEnded() {
		return xerrors.Errorf("election %d: %w", election.ID, ErrAlreadyEnded)
	}

	err = checkDates(step.Timestamp, start, end, result, election.Phase == types.PhaseCreated)
	if err != nil {
		return err
	}

	election.VotingStartDate = start
	election.VotingEndDate = end
	election.ResultAnnounceDate = result

	err = s.setJSON(electionKey(election.ID), election)
	if err != nil {
		return err
	}

	c.logger.Info().Uint64("election", election.ID).Msg("election dates updated")

	return nil
}

// enroll implements commands. It enrolls the caller, an approved user, in the
// election.
func (c votingCommand) enroll(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	caller, err := callerOf(step)
	if err != nil {
		return err
	}

	user, found, err := s.GetUser(caller)
	if err != nil {
		return err
	}

	if !found || !user.Approved {
		return xerrors.Errorf("user %s: %w", caller, ErrNotApproved)
	}

	eid, err := uintArg(step, ElectionArg)
	if err != nil {
		return err
	}

	election, err := s.mustElection(eid)
	if err != nil {
		return err
	}

	record, err := s.getRecord(eid, caller)
	if err != nil {
		return err
	}

	if record.Enrolled {
		return xerrors.Errorf("election %d: %w", eid, ErrAlreadyEnrolled)
	}

	if election.IsEnded() {
		return xerrors.Errorf("election %d: %w", eid, ErrAlreadyEnded)
	}

	record.Enrolled = true
	election.VoterCount++
	user.RegisteredElectionIDs = append(user.RegisteredElectionIDs, eid)

	err = s.setJSON(recordKey(eid, caller), record)
	if err != nil {
		return err
	}

	err = s.setJSON(electionKey(eid), election)
	if err != nil {
		return err
	}

	err = s.setJSON(userKey(caller), user)
	if err != nil {
		return err
	}

	c.logger.Info().Uint64("election", eid).Str("address", caller.String()).Msg("voter enrolled")

	return nil
}

// vote implements commands. It counts the vote of the caller for a candidate
// of an active election. A voter can vote only once per election.
func (c votingCommand) vote(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	caller, err := callerOf(step)
	if err != nil {
		return err
	}

	eid, err := uintArg(step, ElectionArg)
	if err != nil {
		return err
	}

	cid, err := uintArg(step, CandidateArg)
	if err != nil {
		return err
	}

	election, err := s.mustElection(eid)
	if err != nil {
		return err
	}

	if election.Phase != types.PhaseActive {
		return xerrors.Errorf("election %d is %v: %w", eid, election.Phase, ErrNotActive)
	}

	record, err := s.getRecord(eid, caller)
	if err != nil {
		return err
	}

	if !record.Enrolled {
		return xerrors.Errorf("election %d: %w", eid, ErrNotEnrolled)
	}

	if record.HasVoted {
		return xerrors.Errorf("election %d: %w", eid, ErrAlreadyVoted)
	}

	if !election.HasCandidate(cid) {
		return xerrors.Errorf("candidate %d in election %d: %w", cid, eid, ErrInvalidCandidate)
	}

	candidate, found, err := s.GetCandidate(cid)
	if err != nil {
		return err
	}

	if !found || !candidate.Approved {
		return xerrors.Errorf("candidate %d: %w", cid, ErrInvalidCandidate)
	}

	record.HasVoted = true
	candidate.VoteCount++

	err = s.setJSON(recordKey(eid, caller), record)
	if err != nil {
		return err
	}

	err = s.setJSON(candidateKey(cid), candidate)
	if err != nil {
		return err
	}

	c.logger.Info().
		Uint64("election", eid).
		Uint64("candidate", cid).
		Str("address", caller.String()).
		Msg("vote cast")

	return nil
}

// updateState implements commands. It announces the results of an ended
// election once the block time reaches the announcement date. Anyone can
// trigger it.
func (c votingCommand) updateState(snap store.Snapshot, step execution.Step) error {
	s := newState(snap)

	eid, err := uintArg(step, ElectionArg)
	if err != nil {
		return err
	}

	election, err := s.mustElection(eid)
	if err != nil {
		return err
	}

	if !election.IsEnded() {
		return xerrors.Errorf("election %d: %w", eid, ErrNotEnded)
	}

	if step.Timestamp < election.ResultAnnounceDate {
		return xerrors.Errorf("results of election %d announced at %d: %w",
			eid, election.ResultAnnounceDate, ErrTooEarly)
	}

	if election.ResultAnnounced {
		return nil
	}

	election.ResultAnnounced = true

	err = s.setJSON(electionKey(eid), election)
	if err != nil {
		return err
	}

	c.logger.Info().Uint64("election", eid).Msg("results announced")

	return nil
}

// state is the writable view of the contract entities in a snapshot.
type state struct {
	Reader

	w store.Writable
}

func newState(snap store.Snapshot) state {
	ns := prefixed.NewSnapshot(Namespace, snap)

	return state{
		Reader: Reader{r: ns},
		w:      ns,
	}
}

func (s state) checkOwner(step execution.Step) error {
	caller, err := callerOf(step)
	if err != nil {
		return err
	}

	ok, err := s.IsOwner(caller)
	if err != nil {
		return err
	}

	if !ok {
		return xerrors.Errorf("address %s: %w", caller, ErrUnauthorized)
	}

	return nil
}

func (s state) ownedElection(step execution.Step) (types.Election, error) {
	err := s.checkOwner(step)
	if err != nil {
		return types.Election{}, err
	}

	eid, err := uintArg(step, ElectionArg)
	if err != nil {
		return types.Election{}, err
	}

	return s.mustElection(eid)
}

func (s state) mustElection(id uint64) (types.Election, error) {
	election, found, err := s.GetElection(id)
	if err != nil {
		return election, err
	}

	if !found {
		return election, xerrors.Errorf("election %d: %w", id, ErrNotFound)
	}

	return election, nil
}

func (s state) mustCandidate(id uint64) (types.Candidate, error) {
	candidate, found, err := s.GetCandidate(id)
	if err != nil {
		return candidate, err
	}

	if !found {
		return candidate, xerrors.Errorf("candidate %d: %w", id, ErrNotFound)
	}

	return candidate, nil
}

func (s state) setJSON(key []byte, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return xerrors.Errorf("failed to marshal: %v", err)
	}

	err = s.w.Set(key, value)
	if err != nil {
		return xerrors.Errorf("failed to set '%s': %v", key, err)
	}

	return nil
}

func (s state) setCounter(key []byte, value uint64) error {
	buffer := make([]byte, 8)
	binary.LittleEndian.PutUint64(buffer, value)

	err := s.w.Set(key, buffer)
	if err != nil {
		return xerrors.Errorf("failed to set '%s': %v", key, err)
	}

	return nil
}

func callerOf(step execution.Step) (access.Address, error) {
	addr, err := access.AddressOf(step.Current.GetIdentity())
	if err != nil {
		return "", xerrors.Errorf("failed to get caller: %v", err)
	}

	return addr, nil
}

func stringArg(step execution.Step, key string) (string, error) {
	value := strings.TrimSpace(string(step.Current.GetArg(key)))
	if value == "" {
		return "", xerrors.Errorf("'%s' is missing or empty: %w", key, ErrInvalidInput)
	}

	return value, nil
}

func uintArg(step execution.Step, key string) (uint64, error) {
	value, err := stringArg(step, key)
	if err != nil {
		return 0, err
	}

	num, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, xerrors.Errorf("'%s' is not a number: %w", key, ErrInvalidInput)
	}

	return num, nil
}

func addressArg(step execution.Step, key string) (access.Address, error) {
	value, err := stringArg(step, key)
	if err != nil {
		return "", err
	}

	addr, err := access.ParseAddress(value)
	if err != nil {
		return "", xerrors.Errorf("'%s' is not an address: %w", key, ErrInvalidInput)
	}

	return addr, nil
}

func datesArg(step execution.Step) (start, end, result uint64, err error) {
	start, err = uintArg(step, StartArg)
	if err != nil {
		return
	}

	end, err = uintArg(step, EndArg)
	if err != nil {
		return
	}

	result, err = uintArg(step, ResultArg)

	return
}

// checkDates verifies that the dates are strictly increasing and not too far
// in the future. When upcoming is true, the start date must be after now,
// otherwise only the end date must be.
func checkDates(now, start, end, result uint64, upcoming bool) error {
	if start >= end || end >= result {
		return xerrors.Errorf("dates %d, %d, %d are not increasing: %w",
			start, end, result, ErrInvalidDates)
	}

	if result > MaxTimestamp {
		return xerrors.Errorf("date %d is after %d: %w", result, uint64(MaxTimestamp), ErrInvalidDates)
	}

	if upcoming && start <= now {
		return xerrors.Errorf("voting start date %d must be in the future: %w", start, ErrInvalidDates)
	}

	if end <= now {
		return xerrors.Errorf("voting end date %d must be in the future: %w", end, ErrInvalidDates)
	}

	return nil
}

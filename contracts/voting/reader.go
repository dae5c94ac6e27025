package voting

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.dedis.ch/ballot/contracts/voting/types"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/prefixed"
	"golang.org/x/xerrors"
)

// Namespace is the prefix of the keys of the contract in the ledger state.
const Namespace = "ballot:voting"

var (
	ownerKey          = []byte("owner")
	usersKey          = []byte("users")
	candidateCountKey = []byte("candidates")
	electionCountKey  = []byte("elections")
)

func userKey(addr access.Address) []byte {
	return []byte("user:" + addr.String())
}

func candidacyKey(addr access.Address) []byte {
	return []byte("candidacy:" + addr.String())
}

func candidateKey(id uint64) []byte {
	return []byte(fmt.Sprintf("candidate:%d", id))
}

func electionKey(id uint64) []byte {
	return []byte(fmt.Sprintf("election:%d", id))
}

func recordKey(election uint64, addr access.Address) []byte {
	return []byte(fmt.Sprintf("record:%d:%s", election, addr))
}

// Reader provides the queries of the voting contract over a state. A missing
// entity is reported with a boolean and never as an error.
type Reader struct {
	r store.Readable
}

// NewReader returns a reader of the contract entities stored in the state.
func NewReader(r store.Readable) Reader {
	return Reader{
		r: prefixed.NewReadable(Namespace, r),
	}
}

// GetOwner returns the address of the owner of the contract, or an empty
// address if it has not been initialized.
func (r Reader) GetOwner() (access.Address, error) {
	value, err := r.r.Get(ownerKey)
	if err != nil {
		return "", xerrors.Errorf("failed to read owner: %v", err)
	}

	return access.Address(value), nil
}

// IsOwner returns true if the address is the owner of the contract.
func (r Reader) IsOwner(addr access.Address) (bool, error) {
	owner, err := r.GetOwner()
	if err != nil {
		return false, err
	}

	return owner != "" && owner == addr, nil
}

// GetUser returns the user of the address if it exists.
func (r Reader) GetUser(addr access.Address) (types.User, bool, error) {
	var user types.User

	found, err := r.getJSON(userKey(addr), &user)
	if err != nil {
		return user, false, xerrors.Errorf("failed to read user: %v", err)
	}

	return user, found, nil
}

// GetCandidate returns the candidate of the identifier if it exists.
func (r Reader) GetCandidate(id uint64) (types.Candidate, bool, error) {
	var candidate types.Candidate

	found, err := r.getJSON(candidateKey(id), &candidate)
	if err != nil {
		return candidate, false, xerrors.Errorf("failed to read candidate: %v", err)
	}

	return candidate, found, nil
}

// GetCandidateOf returns the candidacy filed by the address if any.
func (r Reader) GetCandidateOf(addr access.Address) (types.Candidate, bool, error) {
	id, err := r.getCounter(candidacyKey(addr))
	if err != nil {
		return types.Candidate{}, false, xerrors.Errorf("failed to read candidacy: %v", err)
	}

	if id == 0 {
		return types.Candidate{}, false, nil
	}

	return r.GetCandidate(id)
}

// GetElection returns the election of the identifier if it exists.
func (r Reader) GetElection(id uint64) (types.Election, bool, error) {
	var election types.Election

	found, err := r.getJSON(electionKey(id), &election)
	if err != nil {
		return election, false, xerrors.Errorf("failed to read election: %v", err)
	}

	return election, found, nil
}

// GetAllElections returns the elections in the order of creation.
func (r Reader) GetAllElections() ([]types.Election, error) {
	count, err := r.getCounter(electionCountKey)
	if err != nil {
		return nil, xerrors.Errorf("failed to read counter: %v", err)
	}

	elections := make([]types.Election, 0, count)

	for id := uint64(1); id <= count; id++ {
		election, found, err := r.GetElection(id)
		if err != nil {
			return nil, err
		}

		if !found {
			return nil, xerrors.Errorf("election %d is missing", id)
		}

		elections = append(elections, election)
	}

	return elections, nil
}

// GetAllCandidates returns the candidates in the order of their request.
func (r Reader) GetAllCandidates() ([]types.Candidate, error) {
	count, err := r.getCounter(candidateCountKey)
	if err != nil {
		return nil, xerrors.Errorf("failed to read counter: %v", err)
	}

	candidates := make([]types.Candidate, 0, count)

	for id := uint64(1); id <= count; id++ {
		candidate, found, err := r.GetCandidate(id)
		if err != nil {
			return nil, err
		}

		if !found {
			return nil, xerrors.Errorf("candidate %d is missing", id)
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// GetPendingUsers returns the users waiting for an approval, in the order of
// their request.
func (r Reader) GetPendingUsers() ([]types.User, error) {
	var addrs []access.Address

	_, err := r.getJSON(usersKey, &addrs)
	if err != nil {
		return nil, xerrors.Errorf("failed to read users: %v", err)
	}

	pending := []types.User{}

	for _, addr := range addrs {
		user, found, err := r.GetUser(addr)
		if err != nil {
			return nil, err
		}

		if found && !user.Approved {
			pending = append(pending, user)
		}
	}

	return pending, nil
}

// GetPendingCandidates returns the candidates waiting for an approval.
func (r Reader) GetPendingCandidates() ([]types.Candidate, error) {
	candidates, err := r.GetAllCandidates()
	if err != nil {
		return nil, err
	}

	pending := []types.Candidate{}

	for _, candidate := range candidates {
		if !candidate.Approved {
			pending = append(pending, candidate)
		}
	}

	return pending, nil
}

// GetElectionResults returns the vote counts of an ended election.
func (r Reader) GetElectionResults(id uint64) (types.Results, error) {
	election, found, err := r.GetElection(id)
	if err != nil {
		return types.Results{}, err
	}

	if !found {
		return types.Results{}, xerrors.Errorf("election %d: %w", id, ErrNotFound)
	}

	if !election.IsEnded() {
		return types.Results{}, xerrors.Errorf("election %d: %w", id, ErrNotEnded)
	}

	res := types.Results{
		CandidateIDs: make([]uint64, len(election.CandidateIDs)),
		VoteCounts:   make([]uint64, len(election.CandidateIDs)),
	}

	for i, cid := range election.CandidateIDs {
		candidate, found, err := r.GetCandidate(cid)
		if err != nil {
			return types.Results{}, err
		}

		if !found {
			return types.Results{}, xerrors.Errorf("candidate %d is missing", cid)
		}

		res.CandidateIDs[i] = cid
		res.VoteCounts[i] = candidate.VoteCount
	}

	return res, nil
}

// IsEnrolled returns true if the address is enrolled to vote in the election.
func (r Reader) IsEnrolled(election uint64, addr access.Address) (bool, error) {
	record, err := r.getRecord(election, addr)
	if err != nil {
		return false, err
	}

	return record.Enrolled, nil
}

// HasVoted returns true if the address has voted in the election.
func (r Reader) HasVoted(election uint64, addr access.Address) (bool, error) {
	record, err := r.getRecord(election, addr)
	if err != nil {
		return false, err
	}

	return record.HasVoted, nil
}

func (r Reader) getRecord(election uint64, addr access.Address) (types.Record, error) {
	var record types.Record

	_, err := r.getJSON(recordKey(election, addr), &record)
	if err != nil {
		return record, xerrors.Errorf("failed to read record: %v", err)
	}

	return record, nil
}

func (r Reader) getJSON(key []byte, v interface{}) (bool, error) {
	value, err := r.r.Get(key)
	if err != nil {
		return false, err
	}

	if value == nil {
		return false, nil
	}

	err = json.Unmarshal(value, v)
	if err != nil {
		return false, xerrors.Errorf("failed to unmarshal: %v", err)
	}

	return true, nil
}

func (r Reader) getCounter(key []byte) (uint64, error) {
	value, err := r.r.Get(key)
	if err != nil {
		return 0, err
	}

	if value == nil {
		return 0, nil
	}

	if len(value) != 8 {
		return 0, xerrors.Errorf("malformed counter of length %d", len(value))
	}

	return binary.LittleEndian.Uint64(value), nil
}

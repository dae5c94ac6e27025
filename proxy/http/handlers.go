package http

import (
	"encoding/hex"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.dedis.ch/ballot/contracts/voting"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/ordering/serial/types"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/serde/json"
	"golang.org/x/xerrors"
)

// maxBodySize is the maximum size in bytes of a serialized transaction.
const maxBodySize = 1 << 20

// BlockView is the JSON representation of a block.
type BlockView struct {
	Index        uint64            `json:"index"`
	Timestamp    uint64            `json:"timestamp"`
	Hash         string            `json:"hash"`
	Previous     string            `json:"previous"`
	StateHash    string            `json:"stateHash"`
	Transactions []TransactionView `json:"transactions"`
}

// TransactionView is the JSON representation of the result of a transaction.
type TransactionView struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// VoterView is the JSON representation of the participation of an address to
// an election.
type VoterView struct {
	Enrolled bool `json:"enrolled"`
	HasVoted bool `json:"hasVoted"`
}

// queryFn reads the state and returns the value to respond with, or false
// when the entity does not exist.
type queryFn func(r voting.Reader) (interface{}, bool, error)

// query runs the function on a single version of the state so that the value
// does not mix the content of different blocks.
func (h *HTTP) query(c *gin.Context, fn queryFn) {
	var value interface{}
	var found bool

	err := h.ledger.View(func(rd store.Readable) error {
		var err error
		value, found, err = fn(voting.NewReader(rd))

		return err
	})

	h.respond(c, value, found, err)
}

func (h *HTTP) getOwner(c *gin.Context) {
	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		owner, err := r.GetOwner()
		return gin.H{"owner": owner}, true, err
	})
}

func (h *HTTP) getUser(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}

	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		return r.GetUser(addr)
	})
}

func (h *HTTP) getCandidacy(c *gin.Context) {
	addr, ok := addressParam(c)
	if !ok {
		return
	}

	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		return r.GetCandidateOf(addr)
	})
}

func (h *HTTP) getPendingUsers(c *gin.Context) {
	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		users, err := r.GetPendingUsers()
		return users, true, err
	})
}

func (h *HTTP) getCandidates(c *gin.Context) {
	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		candidates, err := r.GetAllCandidates()
		return candidates, true, err
	})
}

func (h *HTTP) getPendingCandidates(c *gin.Context) {
	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		candidates, err := r.GetPendingCandidates()
		return candidates, true, err
	})
}

func (h *HTTP) getCandidate(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		return r.GetCandidate(id)
	})
}

func (h *HTTP) getElections(c *gin.Context) {
	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		elections, err := r.GetAllElections()
		return elections, true, err
	})
}

func (h *HTTP) getElection(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		return r.GetElection(id)
	})
}

func (h *HTTP) getResults(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		results, err := r.GetElectionResults(id)
		return results, true, err
	})
}

func (h *HTTP) getVoter(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	addr, ok := addressParam(c)
	if !ok {
		return
	}

	h.query(c, func(r voting.Reader) (interface{}, bool, error) {
		_, found, err := r.GetElection(id)
		if err != nil || !found {
			return nil, found, err
		}

		enrolled, err := r.IsEnrolled(id, addr)
		if err != nil {
			return nil, false, err
		}

		voted, err := r.HasVoted(id, addr)
		if err != nil {
			return nil, false, err
		}

		return VoterView{Enrolled: enrolled, HasVoted: voted}, true, nil
	})
}

func (h *HTTP) addTransaction(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.txFac.TransactionOf(json.NewContext(), data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed transaction: " + err.Error()})
		return
	}

	err = h.ledger.Add(tx)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": hex.EncodeToString(tx.GetID())})
}

func (h *HTTP) getBlock(c *gin.Context) {
	index, ok := uintParam(c, "index")
	if !ok {
		return
	}

	block, err := h.ledger.GetBlock(index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"found": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, newBlockView(block))
}

// respond writes the value, or the error if any. A missing entity is reported
// with the status 404.
func (h *HTTP) respond(c *gin.Context, v interface{}, found bool, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}

	c.JSON(http.StatusOK, v)
}

func (h *HTTP) fail(c *gin.Context, err error) {
	switch {
	case xerrors.Is(err, voting.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"found": false})
	case xerrors.Is(err, voting.ErrNotEnded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Warn().Err(err).Str("url", c.Request.URL.Path).Msg("failed to read state")

		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func uintParam(c *gin.Context, name string) (uint64, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + " '" + c.Param(name) + "'"})
		return 0, false
	}

	return value, true
}

func addressParam(c *gin.Context) (access.Address, bool) {
	addr, err := access.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}

	return addr, true
}

func newBlockView(block types.Block) BlockView {
	view := BlockView{
		Index:        block.GetIndex(),
		Timestamp:    block.GetTimestamp(),
		Hash:         digestHex(block.GetHash()),
		Previous:     digestHex(block.GetPrevious()),
		StateHash:    digestHex(block.GetStateHash()),
		Transactions: []TransactionView{},
	}

	if block.GetData() != nil {
		view.Transactions = newTransactionViews(block.GetData().GetTransactionResults())
	}

	return view
}

func newTransactionViews(results []validation.TransactionResult) []TransactionView {
	views := make([]TransactionView, 0, len(results))

	for _, res := range results {
		accepted, reason := res.GetStatus()

		views = append(views, TransactionView{
			ID:       hex.EncodeToString(res.GetTransaction().GetID()),
			Accepted: accepted,
			Reason:   reason,
		})
	}

	return views
}

func digestHex(d types.Digest) string {
	return hex.EncodeToString(d[:])
}

package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/contracts/voting"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ordering"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/core/validation"
	"go.dedis.ch/ballot/crypto"
	"golang.org/x/xerrors"
)

// ledger is the part of the ordering service the actions are using.
type ledger interface {
	ordering.Service

	GetNonce(access.Identity) (uint64, error)
}

// param maps a flag of a command to an argument of the transaction.
type param struct {
	name   string
	arg    string
	usage  string
	number bool
}

func (p param) flag() cli.Flag {
	if p.number {
		return cli.Uint64Flag{Name: p.name, Usage: p.usage, Required: true}
	}

	return cli.StringFlag{Name: p.name, Usage: p.usage, Required: true}
}

func (p param) value(flags cli.Flags) []byte {
	if p.number {
		return []byte(strconv.FormatUint(flags.Uint64(p.name), 10))
	}

	return []byte(flags.String(p.name))
}

var (
	electionParam  = param{name: "election", arg: voting.ElectionArg, usage: "identifier of the election", number: true}
	candidateParam = param{name: "candidate", arg: voting.CandidateArg, usage: "identifier of the candidate", number: true}

	dateParams = []param{
		{name: "start", arg: voting.StartArg, usage: "start of the votes in Unix seconds", number: true},
		{name: "end", arg: voting.EndArg, usage: "end of the votes in Unix seconds", number: true},
		{name: "result", arg: voting.ResultArg, usage: "announcement of the results in Unix seconds", number: true},
	}
)

type txCommand struct {
	name        string
	description string
	cmd         voting.Command
	params      []param
}

var txCommands = []txCommand{
	{
		name:        "register",
		description: "request the registration of the signer",
		cmd:         voting.CmdRegisterUser,
		params:      []param{{name: "name", arg: voting.NameArg, usage: "name of the user"}},
	},
	{
		name:        "approve-user",
		description: "approve a pending user",
		cmd:         voting.CmdApproveUser,
		params:      []param{{name: "address", arg: voting.AddressArg, usage: "address of the user"}},
	},
	{
		name:        "candidate",
		description: "request the candidacy of the signer",
		cmd:         voting.CmdRegisterCandidate,
		params: []param{
			{name: "party", arg: voting.PartyArg, usage: "name of the party"},
			{name: "symbol", arg: voting.SymbolArg, usage: "symbol of the party"},
		},
	},
	{
		name:        "approve-candidate",
		description: "approve a pending candidate",
		cmd:         voting.CmdApproveCandidate,
		params:      []param{candidateParam},
	},
	{
		name:        "create",
		description: "create an election",
		cmd:         voting.CmdCreateElection,
		params: append([]param{
			{name: "title", arg: voting.TitleArg, usage: "title of the election"},
			{name: "description", arg: voting.DescriptionArg, usage: "description of the election"},
		}, dateParams...),
	},
	{
		name:        "add-candidate",
		description: "add an approved candidate to an election",
		cmd:         voting.CmdAddCandidate,
		params:      []param{electionParam, candidateParam},
	},
	{
		name:        "start",
		description: "start an election",
		cmd:         voting.CmdStartElection,
		params:      []param{electionParam},
	},
	{
		name:        "pause",
		description: "pause or resume an election",
		cmd:         voting.CmdPauseElection,
		params:      []param{electionParam},
	},
	{
		name:        "end",
		description: "end an election",
		cmd:         voting.CmdEndElection,
		params:      []param{electionParam},
	},
	{
		name:        "dates",
		description: "update the dates of an election",
		cmd:         voting.CmdUpdateDates,
		params:      append([]param{electionParam}, dateParams...),
	},
	{
		name:        "enroll",
		description: "enroll the signer in an election",
		cmd:         voting.CmdEnroll,
		params:      []param{electionParam},
	},
	{
		name:        "vote",
		description: "vote for a candidate of an election",
		cmd:         voting.CmdVote,
		params:      []param{electionParam, candidateParam},
	},
	{
		name:        "update-state",
		description: "announce the results of an ended election",
		cmd:         voting.CmdUpdateState,
		params:      []param{electionParam},
	},
}

// txAction is an action to sign a transaction for the voting contract and
// wait for its result.
//
// - implements node.ActionTemplate
type txAction struct {
	cmd        voting.Command
	params     []param
	loadSigner func(path string) (crypto.Signer, error)
}

// Execute implements node.ActionTemplate. It creates the transaction from the
// flags, submits it, then waits for the block that includes it.
func (a txAction) Execute(ctx node.Context) error {
	var srvc ledger
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	signer, err := a.loadSigner(ctx.Flags.Path("key"))
	if err != nil {
		return xerrors.Errorf("failed to load signer: %v", err)
	}

	args := []txn.Arg{
		{Key: native.ContractArg, Value: []byte(voting.ContractName)},
		{Key: voting.CmdArg, Value: []byte(a.cmd)},
	}

	for _, p := range a.params {
		args = append(args, txn.Arg{Key: p.arg, Value: p.value(ctx.Flags)})
	}

	mgr := signed.NewManager(signer, srvc)

	err = mgr.Sync()
	if err != nil {
		return xerrors.Errorf("failed to sync manager: %v", err)
	}

	tx, err := mgr.Make(args...)
	if err != nil {
		return xerrors.Errorf("failed to make transaction: %v", err)
	}

	wait := ctx.Flags.Duration("wait")
	if wait <= 0 {
		wait = defaultWait
	}

	watchCtx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	events := srvc.Watch(watchCtx)

	err = srvc.Add(tx)
	if err != nil {
		return xerrors.Errorf("failed to add transaction: %v", err)
	}

	for {
		select {
		case <-watchCtx.Done():
			return xerrors.Errorf("transaction not included after %v", wait)
		case evt := <-events:
			res, found := validation.Find(evt.Transactions, tx.GetID())
			if !found {
				continue
			}

			accepted, reason := res.GetStatus()
			if !accepted {
				return xerrors.Errorf("transaction refused: %s", reason)
			}

			fmt.Fprintf(ctx.Out, "transaction %x accepted in block %d", tx.GetID(), evt.Index)

			return nil
		}
	}
}

type readCommand struct {
	name        string
	description string
	flags       []cli.Flag
	read        func(voting.Reader, cli.Flags) (interface{}, error)
}

var readCommands = []readCommand{
	{
		name:        "owner",
		description: "print the address of the owner",
		read: func(r voting.Reader, _ cli.Flags) (interface{}, error) {
			return r.GetOwner()
		},
	},
	{
		name:        "user",
		description: "print a user",
		flags:       []cli.Flag{param{name: "address", usage: "address of the user"}.flag()},
		read: func(r voting.Reader, flags cli.Flags) (interface{}, error) {
			addr, err := access.ParseAddress(flags.String("address"))
			if err != nil {
				return nil, err
			}

			user, found, err := r.GetUser(addr)
			if err == nil && !found {
				err = xerrors.Errorf("user %s: %w", addr, voting.ErrNotFound)
			}

			return user, err
		},
	},
	{
		name:        "candidate",
		description: "print a candidate",
		flags:       []cli.Flag{candidateParam.flag()},
		read: func(r voting.Reader, flags cli.Flags) (interface{}, error) {
			id := flags.Uint64("candidate")

			candidate, found, err := r.GetCandidate(id)
			if err == nil && !found {
				err = xerrors.Errorf("candidate %d: %w", id, voting.ErrNotFound)
			}

			return candidate, err
		},
	},
	{
		name:        "candidates",
		description: "print all the candidates",
		read: func(r voting.Reader, _ cli.Flags) (interface{}, error) {
			return r.GetAllCandidates()
		},
	},
	{
		name:        "election",
		description: "print an election",
		flags:       []cli.Flag{electionParam.flag()},
		read: func(r voting.Reader, flags cli.Flags) (interface{}, error) {
			id := flags.Uint64("election")

			election, found, err := r.GetElection(id)
			if err == nil && !found {
				err = xerrors.Errorf("election %d: %w", id, voting.ErrNotFound)
			}

			return election, err
		},
	},
	{
		name:        "elections",
		description: "print all the elections",
		read: func(r voting.Reader, _ cli.Flags) (interface{}, error) {
			return r.GetAllElections()
		},
	},
	{
		name:        "pending",
		description: "print the users and the candidates waiting for an approval",
		read: func(r voting.Reader, _ cli.Flags) (interface{}, error) {
			users, err := r.GetPendingUsers()
			if err != nil {
				return nil, err
			}

			candidates, err := r.GetPendingCandidates()
			if err != nil {
				return nil, err
			}

			return map[string]interface{}{"users": users, "candidates": candidates}, nil
		},
	},
	{
		name:        "results",
		description: "print the results of an ended election",
		flags:       []cli.Flag{electionParam.flag()},
		read: func(r voting.Reader, flags cli.Flags) (interface{}, error) {
			return r.GetElectionResults(flags.Uint64("election"))
		},
	},
}

// readAction is an action to print an entity of the contract from a single
// version of the committed state.
//
// - implements node.ActionTemplate
type readAction struct {
	read func(voting.Reader, cli.Flags) (interface{}, error)
}

// Execute implements node.ActionTemplate. It prints the result of the read as
// indented JSON.
func (a readAction) Execute(ctx node.Context) error {
	var srvc ledger
	err := ctx.Injector.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	var res interface{}

	err = srvc.View(func(rd store.Readable) error {
		res, err = a.read(voting.NewReader(rd), ctx.Flags)
		return err
	})
	if err != nil {
		return xerrors.Errorf("failed to read: %v", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal: %v", err)
	}

	fmt.Fprint(ctx.Out, string(data))

	return nil
}

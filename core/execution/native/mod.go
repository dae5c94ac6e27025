// Package native implements an execution service to run native smart contracts.
//
// A native smart contract is written in Go and packaged with the application.
package native

import (
	"sort"

	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/store"
	"golang.org/x/xerrors"
)

const (
	// ContractArg is the argument key in the transaction to look up a contract.
	ContractArg = "ballot:contract"
)

// Contract is the interface to implement to register a smart contract that will
// be executed natively.
type Contract interface {
	Execute(store.Snapshot, execution.Step) error
}

// Service is an execution service for packaged applications. Those
// applications have complete access to the snapshot and can directly update
// it.
//
// - implements execution.Service
type Service struct {
	contracts map[string]Contract
}

// NewExecution returns a new native execution.
func NewExecution() *Service {
	return &Service{
		contracts: map[string]Contract{},
	}
}

// Set stores the contract using the name as the key. A transaction can trigger
// this contract by using the same name as the contract argument. It panics if
// the name is already used.
func (ns *Service) Set(name string, contract Contract) {
	_, found := ns.contracts[name]
	if found {
		panic(xerrors.Errorf("contract '%s' already registered", name))
	}

	ns.contracts[name] = contract
}

// GetContracts returns the sorted names of the registered contracts.
func (ns *Service) GetContracts() []string {
	names := make([]string, 0, len(ns.contracts))
	for name := range ns.contracts {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Execute implements execution.Service. It uses the contract named by the
// transaction to process it and return the result. A transaction for an unknown
// contract is refused.
func (ns *Service) Execute(snap store.Snapshot, step execution.Step) (execution.Result, error) {
	if step.Current == nil {
		return execution.Result{}, xerrors.New("missing transaction")
	}

	name := string(step.Current.GetArg(ContractArg))

	contract := ns.contracts[name]
	if contract == nil {
		res := execution.Result{
			Message: xerrors.Errorf("unknown contract '%s'", name).Error(),
		}

		return res, nil
	}

	res := execution.Result{
		Accepted: true,
	}

	err := contract.Execute(snap, step)
	if err != nil {
		res.Accepted = false
		res.Message = err.Error()
	}

	return res, nil
}

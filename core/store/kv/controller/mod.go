// Package controller implements a controller for the key/value database of the
// node.
package controller

import (
	"path/filepath"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/store/kv"
	"golang.org/x/xerrors"
)

// DBName is the name of the database file in the config folder.
const DBName = "ballot.db"

// minimal is the controller that opens the database when the node starts and
// closes it when it stops.
//
// - implements node.Initializer
type minimal struct {
	openFn func(path string) (kv.DB, error)
}

// NewController returns a new controller initializer.
func NewController() node.Initializer {
	return minimal{
		openFn: kv.New,
	}
}

// SetCommands implements node.Initializer. It does not register any command.
func (m minimal) SetCommands(builder node.Builder) {}

// OnStart implements node.Initializer. It opens the database in the config
// folder and injects it.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	db, err := m.openFn(filepath.Join(flags.Path(node.ConfigFlag), DBName))
	if err != nil {
		return xerrors.Errorf("db: %v", err)
	}

	inj.Inject(db)

	return nil
}

// OnStop implements node.Initializer. It closes the database.
func (m minimal) OnStop(inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("while closing db: %v", err)
	}

	return nil
}

package controller

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestMinimal_SetCommands(t *testing.T) {
	ctrl := NewController()

	ctrl.SetCommands(nil)
}

func TestMinimal_OnStart(t *testing.T) {
	ctrl := NewController()

	dir := t.TempDir()
	inj := node.NewInjector()

	err := ctrl.OnStart(node.FlagSet{node.ConfigFlag: dir}, inj)
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(dir, DBName))

	var db kv.DB
	require.NoError(t, inj.Resolve(&db))

	err = ctrl.OnStop(inj)
	require.NoError(t, err)

	ctrl = minimal{
		openFn: func(string) (kv.DB, error) {
			return nil, fake.GetError()
		},
	}

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err, fake.Err("db"))
}

func TestMinimal_OnStop(t *testing.T) {
	ctrl := NewController()

	err := ctrl.OnStop(node.NewInjector())
	require.EqualError(t, err, "injector: couldn't find dependency for 'kv.DB'")

	inj := node.NewInjector()
	inj.Inject(badDB{})

	err = ctrl.OnStop(inj)
	require.EqualError(t, err, fake.Err("while closing db"))
}

// -----------------------------------------------------------------------------
// Utility functions

type badDB struct {
	kv.DB
}

func (badDB) Close() error {
	return fake.GetError()
}

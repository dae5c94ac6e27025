package node

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/internal/testing/fake"
	"golang.org/x/xerrors"
)

func TestCLIBuilder_SetStartFlags(t *testing.T) {
	builder := NewBuilder()

	builder.SetStartFlags(cli.StringFlag{}, cli.IntFlag{})
	require.Len(t, builder.startFlags, 2)
}

func TestCLIBuilder_Start(t *testing.T) {
	initializer := &fakeInitializer{calls: fake.NewCall()}

	builder := NewBuilderWithCfg(make(chan os.Signal, 1), nil, initializer)
	builder.daemonFactory = fakeFactory{}
	builder.sigs <- syscall.SIGTERM

	dir := filepath.Join(t.TempDir(), "config")

	err := builder.start(FlagSet{ConfigFlag: dir})
	require.NoError(t, err)
	require.DirExists(t, dir)
	require.Equal(t, 2, initializer.calls.Len())

	builder.daemonFactory = fakeFactory{err: fake.GetError()}
	err = builder.start(FlagSet{})
	require.EqualError(t, err, fake.Err("couldn't make daemon"))

	builder.daemonFactory = fakeFactory{errDaemon: fake.GetError()}
	err = builder.start(FlagSet{})
	require.EqualError(t, err, fake.Err("couldn't start the daemon"))

	// Test when a component cannot start.
	builder = NewBuilderWithCfg(make(chan os.Signal, 1), nil, &fakeInitializer{err: fake.GetError()})
	builder.daemonFactory = fakeFactory{}

	err = builder.start(FlagSet{})
	require.EqualError(t, err, fake.Err("couldn't run the controller"))

	// Test when a component cannot stop.
	builder = NewBuilderWithCfg(make(chan os.Signal, 1), nil, &fakeInitializer{errStop: fake.GetError()})
	builder.daemonFactory = fakeFactory{}
	builder.sigs <- syscall.SIGTERM

	err = builder.start(FlagSet{})
	require.EqualError(t, err, fake.Err("couldn't stop controller"))
}

func TestCLIBuilder_StopStartedOnFailure_Start(t *testing.T) {
	calls := fake.NewCall()

	first := &fakeInitializer{calls: calls}
	second := &fakeInitializer{calls: calls, err: fake.GetError()}

	builder := NewBuilderWithCfg(make(chan os.Signal, 1), nil, first, second)
	builder.daemonFactory = fakeFactory{}

	err := builder.start(FlagSet{})
	require.EqualError(t, err, fake.Err("couldn't run the controller"))

	// The second initializer never started so only the first one is stopped.
	require.Equal(t, 3, calls.Len())
	require.Equal(t, "start", calls.Get(0, 0))
	require.Equal(t, "start", calls.Get(1, 0))
	require.Equal(t, "stop", calls.Get(2, 0))

	calls.Clear()

	builder = NewBuilderWithCfg(make(chan os.Signal, 1), nil, &fakeInitializer{calls: calls})
	builder.daemonFactory = fakeFactory{errDaemon: fake.GetError()}

	err = builder.start(FlagSet{})
	require.EqualError(t, err, fake.Err("couldn't start the daemon"))
	require.Equal(t, 2, calls.Len())
	require.Equal(t, "stop", calls.Get(1, 0))
}

func TestCLIBuilder_MakeAction(t *testing.T) {
	calls := fake.NewCall()

	builder := NewBuilder()
	builder.daemonFactory = fakeFactory{calls: calls}

	fset := flag.NewFlagSet("", 0)
	fset.Var(urfave.NewStringSlice("item 1", "item 2"), "flag-1", "")
	fset.Int("flag-2", 20, "")

	ctx := urfave.NewContext(makeApp(), fset, nil)

	err := builder.MakeAction(fakeAction{})(ctx)
	require.NoError(t, err)

	data := string(calls.Get(0, 0).([]byte))
	require.Equal(t, "\x00\x00"+`{"flag-1":["item 1","item 2"],"flag-2":20}`, data)

	err = builder.MakeAction(fakeAction{})(FlagSet{})
	require.NoError(t, err)

	data = string(calls.Get(1, 0).([]byte))
	require.Equal(t, "\x01\x00{}", data)

	builder.daemonFactory = fakeFactory{err: fake.GetError()}
	err = builder.MakeAction(fakeAction{})(ctx)
	require.EqualError(t, err, fake.Err("couldn't make client"))

	builder.daemonFactory = fakeFactory{errClient: fake.GetError()}
	err = builder.MakeAction(fakeAction{})(ctx)
	require.EqualError(t, err, fake.Err("couldn't send action"))
}

func TestCLIBuilder_Build(t *testing.T) {
	builder := NewBuilder(&fakeInitializer{})
	builder.daemonFactory = fakeFactory{}

	cb := builder.SetCommand("test")
	cb.SetDescription("test description")
	cb.SetAction(builder.MakeAction(fakeAction{}))
	cb.SetFlags(cli.StringFlag{Name: "string-flag"})

	sub := cb.SetSubCommand("subtest")
	sub.SetDescription("subtest description")
	sub.SetFlags(cli.DurationFlag{}, cli.IntFlag{}, cli.StringSliceFlag{})

	cb = builder.SetCommand("another")
	cb.SetAction(func(cli.Flags) error {
		return nil
	})

	cb = builder.SetCommand("last")
	cb.SetAction(func(cli.Flags) error {
		return xerrors.New("oops")
	})

	app := builder.Build().(*urfave.App)
	require.Equal(t, AppName, app.Name)
	// test, another, last, fake, start and help
	require.Len(t, app.Commands, 6)
	require.Equal(t, "fake", app.Commands[3].Name)
	require.Equal(t, "start", app.Commands[4].Name)

	out := new(bytes.Buffer)
	app.Writer = out

	err := app.Run([]string{AppName, "last"})
	require.EqualError(t, err, "oops")
}

// -----------------------------------------------------------------------------
// Utility functions

func makeApp() *urfave.App {
	return &urfave.App{
		Flags: []urfave.Flag{
			&urfave.StringSliceFlag{Name: "flag-1"},
			&urfave.IntFlag{Name: "flag-2"},
		},
	}
}

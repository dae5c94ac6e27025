package node

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	urfave "github.com/urfave/cli/v2"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/ucli"
	"golang.org/x/xerrors"
)

const (
	// AppName is the name of the application.
	AppName = "ballot"

	// ConfigFlag is the name of the global flag pointing to the folder where
	// the node stores its files.
	ConfigFlag = "config"

	defaultConfig = ".ballot"
)

// CLIBuilder is an application builder that will build a CLI to start and
// control a node.
//
// - implements node.Builder
// - implements cli.Builder
type CLIBuilder struct {
	*ucli.Builder

	daemonFactory DaemonFactory
	injector      Injector
	actions       *actionMap
	startFlags    []cli.Flag
	inits         []Initializer
	writer        io.Writer

	// In production, the daemon is stopped via SIGTERM. In case of testing, the
	// channel is filled by the test instead.
	enableSignal bool
	sigs         chan os.Signal
}

// NewBuilder returns a new empty builder.
func NewBuilder(inits ...Initializer) *CLIBuilder {
	return NewBuilderWithCfg(nil, nil, inits...)
}

// NewBuilderWithCfg returns a new empty builder with specific configurations.
func NewBuilderWithCfg(sigs chan os.Signal, out io.Writer, inits ...Initializer) *CLIBuilder {
	if out == nil {
		out = os.Stdout
	}

	enabled := false

	if sigs == nil {
		sigs = make(chan os.Signal, 1)
		enabled = true
	}

	injector := NewInjector()

	actions := &actionMap{}

	factory := socketFactory{
		injector: injector,
		actions:  actions,
		out:      out,
	}

	builder := ucli.NewBuilder(AppName, nil, cli.StringFlag{
		Name:  ConfigFlag,
		Usage: "path to the config folder",
		Value: defaultConfig,
	})

	builder.SetUsage("decentralized voting ledger")

	return &CLIBuilder{
		Builder:       builder,
		injector:      injector,
		actions:       actions,
		daemonFactory: factory,
		enableSignal:  enabled,
		sigs:          sigs,
		inits:         inits,
		writer:        out,
	}
}

// SetStartFlags implements node.Builder. It appends the given flags to the list
// of flags that will be used to create the start command.
func (b *CLIBuilder) SetStartFlags(flags ...cli.Flag) {
	b.startFlags = append(b.startFlags, flags...)
}

// MakeAction implements node.Builder. It creates a CLI action from the
// template.
func (b *CLIBuilder) MakeAction(tmpl ActionTemplate) cli.Action {
	index := b.actions.Set(tmpl)

	return func(c cli.Flags) error {
		client, err := b.daemonFactory.ClientFromContext(c)
		if err != nil {
			return xerrors.Errorf("couldn't make client: %v", err)
		}

		// The daemon runs the action with the flags of the whole command line.
		req := request{action: index, flags: make(FlagSet)}

		ctx, ok := c.(*urfave.Context)
		if ok {
			lookupFlags(req.flags, ctx)
		}

		data, err := req.encode()
		if err != nil {
			return err
		}

		err = client.Send(data)
		if err != nil {
			return xerrors.Errorf("couldn't send action: %v", err)
		}

		return nil
	}
}

func lookupFlags(fset FlagSet, ctx *urfave.Context) {
	for _, ancestor := range ctx.Lineage() {
		if ancestor.Command != nil {
			fill(fset, ancestor.Command.Flags, ancestor)
		}

		if ancestor.App != nil {
			fill(fset, ancestor.App.Flags, ancestor)
		}
	}
}

func fill(fset FlagSet, flags []urfave.Flag, ctx *urfave.Context) {
	for _, flag := range flags {
		names := flag.Names()
		if len(names) == 0 {
			continue
		}

		_, found := fset[names[0]]
		if found {
			// The most specific command wins.
			continue
		}

		fset[names[0]] = convert(ctx.Value(names[0]))
	}
}

func convert(v interface{}) interface{} {
	switch value := v.(type) {
	case urfave.StringSlice:
		// StringSlice won't serialize correctly with JSON so the actual
		// []string is used instead.
		return value.Value()
	case *urfave.StringSlice:
		return value.Value()
	default:
		return v
	}
}

// Build implements cli.Builder. It returns the application.
func (b *CLIBuilder) Build() cli.Application {
	for _, controller := range b.inits {
		controller.SetCommands(b)
	}

	cmd := b.SetCommand("start")
	cmd.SetDescription("start the daemon")
	cmd.SetFlags(b.startFlags...)
	cmd.SetAction(b.start)

	return b.Builder.Build()
}

func (b *CLIBuilder) start(flags cli.Flags) error {
	if b.enableSignal {
		signal.Notify(b.sigs, syscall.SIGINT, syscall.SIGTERM)

		defer signal.Stop(b.sigs)
	}

	dir := flags.Path(ConfigFlag)
	if dir != "" {
		err := os.MkdirAll(dir, 0700)
		if err != nil {
			return xerrors.Errorf("couldn't make path: %v", err)
		}
	}

	daemon, err := b.daemonFactory.DaemonFromContext(flags)
	if err != nil {
		return xerrors.Errorf("couldn't make daemon: %v", err)
	}

	for i, controller := range b.inits {
		err = controller.OnStart(flags, b.injector)
		if err != nil {
			// The database of the node must not stay open when a later
			// component fails to start.
			b.stop(b.inits[:i])

			return xerrors.Errorf("couldn't run the controller: %v", err)
		}
	}

	// The daemon accepts commands only once every component is running.
	err = daemon.Listen()
	if err != nil {
		b.stop(b.inits)

		return xerrors.Errorf("couldn't start the daemon: %v", err)
	}

	defer daemon.Close()

	ballot.Logger.Info().Str("config", dir).Msg("node is running")

	<-b.sigs

	err = b.stop(b.inits)
	if err != nil {
		return err
	}

	ballot.Logger.Trace().Msg("daemon has been stopped")

	return nil
}

// stop stops the initializers in reverse order, so that the services are
// closed before the database they are using.
func (b *CLIBuilder) stop(inits []Initializer) error {
	for i := len(inits) - 1; i >= 0; i-- {
		err := inits[i].OnStop(b.injector)
		if err != nil {
			return xerrors.Errorf("couldn't stop controller: %v", err)
		}
	}

	return nil
}

// actionMap stores actions and assigns a unique index to each.
type actionMap struct {
	list []ActionTemplate
}

func (m *actionMap) Set(a ActionTemplate) uint16 {
	m.list = append(m.list, a)
	return uint16(len(m.list) - 1)
}

func (m *actionMap) Get(index uint16) ActionTemplate {
	if int(index) >= len(m.list) {
		return nil
	}

	return m.list[index]
}

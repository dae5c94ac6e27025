package node

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/cli"
	"golang.org/x/xerrors"
)

const (
	ioTimeout = 30 * time.Second

	socketName = "daemon.sock"
)

var promCommands = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ballot_daemon_commands_total",
	Help: "number of commands received by the daemon",
}, []string{"outcome"})

func init() {
	ballot.PromCollectors = append(ballot.PromCollectors, promCommands)
}

type eventKind string

const (
	kindOutput eventKind = "out"
	kindError  eventKind = "err"
)

// event is a message of the daemon to the client. A command produces zero or
// more outputs, and at most one error which ends it.
type event struct {
	Kind  eventKind `json:"kind"`
	Value string    `json:"value"`
}

// request is a command read from a connection to the daemon. It is framed as
// the little-endian action identifier on two bytes followed by the JSON flags.
type request struct {
	action uint16
	flags  FlagSet
}

func (r request) encode() ([]byte, error) {
	flags, err := json.Marshal(r.flags)
	if err != nil {
		return nil, xerrors.Errorf("failed to marshal flag set: %v", err)
	}

	data := make([]byte, 2, 2+len(flags))
	binary.LittleEndian.PutUint16(data, r.action)

	return append(data, flags...), nil
}

// socketClient opens a connection to a unix socket daemon to send commands.
//
// - implements node.Client
type socketClient struct {
	socketpath  string
	out         io.Writer
	dialTimeout time.Duration
	dialFn      func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// Send implements node.Client. It writes the request to the daemon and prints
// every output until the connection is closed, or returns the error of the
// command.
func (c socketClient) Send(data []byte) error {
	conn, err := c.dialFn("unix", c.socketpath, c.dialTimeout)
	if err != nil {
		return xerrors.Errorf("couldn't open connection: %v", err)
	}

	defer conn.Close()

	_, err = conn.Write(data)
	if err != nil {
		return xerrors.Errorf("couldn't write to daemon: %v", err)
	}

	dec := json.NewDecoder(conn)

	for {
		var evt event

		err = dec.Decode(&evt)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return xerrors.Errorf("fail to decode event: %v", err)
		}

		switch evt.Kind {
		case kindOutput:
			fmt.Fprintln(c.out, evt.Value)
		case kindError:
			return xerrors.New(evt.Value)
		default:
			return xerrors.Errorf("unexpected event '%s'", evt.Kind)
		}
	}
}

// socketDaemon is a daemon using UNIX socket. Whoever can read and write the
// socket file can control the node.
//
// - implements node.Daemon
type socketDaemon struct {
	sync.WaitGroup

	logger      zerolog.Logger
	socketpath  string
	injector    Injector
	actions     *actionMap
	closing     chan struct{}
	readTimeout time.Duration
	listenFn    func(network, addr string) (net.Listener, error)
}

// Listen implements node.Daemon. It creates the socket file and serves each
// connection in its own go routine.
func (d *socketDaemon) Listen() error {
	socket, err := d.listenFn("unix", d.socketpath)
	if err != nil {
		return xerrors.Errorf("couldn't bind socket: %v", err)
	}

	d.Add(2)

	go func() {
		defer d.Done()

		<-d.closing
		socket.Close()
	}()

	go func() {
		defer d.Done()

		d.acceptLoop(socket)
	}()

	d.logger.Debug().Msg("daemon is listening")

	return nil
}

func (d *socketDaemon) acceptLoop(socket net.Listener) {
	for {
		conn, err := socket.Accept()
		if err != nil {
			select {
			case <-d.closing:
			default:
				d.logger.Err(err).Msg("daemon closed unexpectedly")
			}

			return
		}

		go d.handleConn(conn)
	}
}

func (d *socketDaemon) handleConn(conn net.Conn) {
	defer conn.Close()

	logger := d.logger.With().Str("request", xid.New().String()).Logger()

	req, err := d.readRequest(conn)
	if err == io.EOF {
		// Nothing was sent, which is how the client tests that the daemon is
		// running.
		return
	}
	if err != nil {
		promCommands.WithLabelValues("rejected").Inc()
		d.sendError(logger, conn, err)
		return
	}

	logger.Debug().
		Uint16("command", req.action).
		Str("flags", fmt.Sprintf("%v", req.flags)).
		Msg("received command on the daemon")

	action := d.actions.Get(req.action)
	if action == nil {
		promCommands.WithLabelValues("rejected").Inc()
		d.sendError(logger, conn, xerrors.Errorf("unknown command '%d'", req.action))
		return
	}

	start := time.Now()

	err = action.Execute(Context{
		Injector: d.injector,
		Flags:    req.flags,
		Out:      newClientWriter(conn),
	})
	if err != nil {
		promCommands.WithLabelValues("failed").Inc()
		d.sendError(logger, conn, xerrors.Errorf("command error: %v", err))
		return
	}

	promCommands.WithLabelValues("done").Inc()

	logger.Debug().Dur("duration", time.Since(start)).Msg("command done")
}

// readRequest reads the command within the read timeout. The deadline is then
// lifted as some actions wait for a block.
func (d *socketDaemon) readRequest(conn net.Conn) (request, error) {
	conn.SetReadDeadline(time.Now().Add(d.readTimeout))
	defer conn.SetReadDeadline(time.Time{})

	header := make([]byte, 2)

	_, err := io.ReadFull(conn, header)
	if err == io.EOF {
		return request{}, err
	}
	if err != nil {
		return request{}, xerrors.Errorf("stream corrupted: %v", err)
	}

	req := request{
		action: binary.LittleEndian.Uint16(header),
		flags:  make(FlagSet),
	}

	err = json.NewDecoder(conn).Decode(&req.flags)
	if err != nil {
		return request{}, xerrors.Errorf("failed to decode flags: %v", err)
	}

	return req, nil
}

func (d *socketDaemon) sendError(logger zerolog.Logger, conn net.Conn, err error) {
	logger.Debug().Err(err).Msg("sending error to client")

	err = json.NewEncoder(conn).Encode(event{Kind: kindError, Value: err.Error()})
	if err != nil {
		logger.Warn().Err(err).Msg("connection to daemon has error")
	}
}

// Close implements node.Daemon. It removes the socket and waits for the accept
// loop to return. Commands in progress are not interrupted.
func (d *socketDaemon) Close() error {
	close(d.closing)
	d.Wait()

	return nil
}

// clientWriter sends each write to the client as an output event.
//
// - implements io.Writer
type clientWriter struct {
	enc *json.Encoder
}

func newClientWriter(w io.Writer) *clientWriter {
	return &clientWriter{
		enc: json.NewEncoder(w),
	}
}

// Write implements io.Writer.
func (w *clientWriter) Write(data []byte) (int, error) {
	err := w.enc.Encode(event{Kind: kindOutput, Value: string(data)})
	if err != nil {
		return 0, xerrors.Errorf("while packing data: %v", err)
	}

	return len(data), nil
}

// socketFactory creates the daemon and its clients for the configuration
// folder of the node.
//
// - implements node.DaemonFactory
type socketFactory struct {
	injector Injector
	actions  *actionMap
	out      io.Writer
}

// ClientFromContext implements node.DaemonFactory.
func (f socketFactory) ClientFromContext(ctx cli.Flags) (Client, error) {
	client := socketClient{
		socketpath:  socketPath(ctx),
		out:         f.out,
		dialTimeout: ioTimeout,
		dialFn:      net.DialTimeout,
	}

	return client, nil
}

// DaemonFromContext implements node.DaemonFactory.
func (f socketFactory) DaemonFromContext(ctx cli.Flags) (Daemon, error) {
	path := socketPath(ctx)

	daemon := &socketDaemon{
		logger:      ballot.Logger.With().Str("daemon", path).Logger(),
		socketpath:  path,
		injector:    f.injector,
		actions:     f.actions,
		closing:     make(chan struct{}),
		readTimeout: ioTimeout,
		listenFn:    net.Listen,
	}

	return daemon, nil
}

func socketPath(ctx cli.Flags) string {
	return filepath.Join(ctx.Path(ConfigFlag), socketName)
}

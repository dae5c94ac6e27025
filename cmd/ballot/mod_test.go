package main

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/core/access"
	"go.dedis.ch/ballot/crypto/ed25519/command"
)

func TestBallot_Scenario(t *testing.T) {
	dir := t.TempDir()

	key := filepath.Join(dir, "owner.key")
	genesis := filepath.Join(dir, "genesis.yml")
	nodeDir := filepath.Join(dir, "node")

	err := runWithCfg([]string{os.Args[0], "crypto", "keygen", "--save", key}, discard())
	require.NoError(t, err)

	signer, err := command.LoadSigner(key)
	require.NoError(t, err)

	owner, err := access.AddressOf(signer.GetPublicKey())
	require.NoError(t, err)

	err = os.WriteFile(genesis, []byte("owner: "+owner.String()+"\n"), 0600)
	require.NoError(t, err)

	sigs := make(chan os.Signal)
	wg := sync.WaitGroup{}
	wg.Add(1)

	var startErr error

	go func() {
		defer wg.Done()

		startErr = runWithCfg([]string{
			os.Args[0], "--config", nodeDir, "start",
			"--genesis", genesis,
			"--blocktime", "10ms",
		}, config{Channel: sigs, Writer: io.Discard})
	}()

	defer func() {
		// Simulate a Ctrl+C
		close(sigs)
		wg.Wait()

		require.NoError(t, startErr)
	}()

	waitDaemon(t, nodeDir)

	buffer := new(bytes.Buffer)

	err = runWithCfg([]string{
		os.Args[0], "--config", nodeDir, "voting", "register",
		"--key", key, "--name", "Owner",
	}, config{Writer: buffer})
	require.NoError(t, err)
	require.Contains(t, buffer.String(), "accepted in block 1")

	buffer.Reset()
	err = runWithCfg([]string{
		os.Args[0], "--config", nodeDir, "voting", "approve-user",
		"--key", key, "--address", owner.String(),
	}, config{Writer: buffer})
	require.NoError(t, err)
	require.Contains(t, buffer.String(), "accepted in block 2")

	buffer.Reset()
	err = runWithCfg([]string{
		os.Args[0], "--config", nodeDir, "voting", "user", "--address", owner.String(),
	}, config{Writer: buffer})
	require.NoError(t, err)
	require.Contains(t, buffer.String(), `"approved": true`)

	err = runWithCfg([]string{
		os.Args[0], "--config", nodeDir, "voting", "register",
		"--key", key, "--name", "Owner",
	}, discard())
	require.Error(t, err)
	require.Contains(t, err.Error(), "transaction refused: ")

	buffer.Reset()
	err = runWithCfg([]string{os.Args[0], "--config", nodeDir, "ordering", "verify"},
		config{Writer: buffer})
	require.NoError(t, err)
	require.Regexp(t, "^[0-9]+ blocks verified\n$", buffer.String())

	err = runWithCfg([]string{os.Args[0], "--config", nodeDir, "voting", "register"}, discard())
	require.Error(t, err)
	require.Contains(t, err.Error(), "Required flags")
}

// -----------------------------------------------------------------------------
// Utility functions

func discard() config {
	return config{Writer: io.Discard}
}

func waitDaemon(t *testing.T, dir string) {
	num := 100

	for i := 0; i < num; i++ {
		conn, err := net.Dial("unix", filepath.Join(dir, "daemon.sock"))
		if err == nil {
			conn.Close()
			return
		}

		time.Sleep(30 * time.Millisecond)
	}

	t.Fatal("timeout")
}

package testbroker

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// StartEmbeddedEventBus starts an embedded, JetStream-less NATS server and
// returns a connected client. It is used by integration tests as a
// lightweight pub/sub bus for coordinating between the test goroutine and
// message handlers, running the real server and client in-process instead of
// standing up an external broker dependency.
func StartEmbeddedEventBus(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := &server.Options{
		Host:    "127.0.0.1",
		Port:    -1,
		NoLog:   true,
		NoSigs:  true,
		LogFile: "",
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		t.Fatalf("testbroker: failed to create embedded event bus: %v", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("testbroker: embedded event bus not ready within timeout")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Timeout(2*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("testbroker: failed to connect to embedded event bus: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})

	return ns, nc
}

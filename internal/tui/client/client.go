package client

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/chatsync/internal/bus"
	"github.com/matheus3301/chatsync/internal/config"
	"github.com/matheus3301/chatsync/internal/instance"
	"github.com/matheus3301/chatsync/internal/rpc"
	"github.com/matheus3301/chatsync/internal/syncer"
	"go.uber.org/zap"
)

// Client wires a syncer core to chatd over gRPC.
type Client struct {
	conn *rpc.Client
	Core *syncer.Client
	Bus  *bus.Bus
	// Target is the address that was dialed.
	Target string
}

// Target returns the daemon address for an instance: the configured
// [client] target, or the instance socket.
func Target(instanceName string, cfg *config.Config) string {
	if cfg != nil && cfg.Client.Target != "" {
		return cfg.Client.Target
	}
	return instance.SocketPath(instanceName)
}

// New dials the instance daemon and restores a cached sign-in.
func New(instanceName string, cfg *config.Config, logger *zap.Logger) (*Client, error) {
	target := Target(instanceName, cfg)
	conn, err := rpc.Dial(target, rpc.NewTokenCache(instance.TokenPath(instanceName)))
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	b := bus.New()
	core := syncer.New(conn, conn, conn, syncer.Options{Bus: b, Logger: logger})
	core.Start()

	return &Client{conn: conn, Core: core, Bus: b, Target: target}, nil
}

// Close stops every live query and closes the gRPC connection.
func (c *Client) Close() error {
	c.Core.Close()
	return c.conn.Close()
}

// Ping checks that the daemon answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Probe dials the instance daemon once and checks that it answers.
func Probe(instanceName string, cfg *config.Config) error {
	conn, err := rpc.Dial(Target(instanceName, cfg), nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return conn.Ping(ctx)
}

// WaitReady polls the daemon until it answers or timeout elapses.
func WaitReady(instanceName string, cfg *config.Config, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if Probe(instanceName, cfg) == nil {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}

// StartDaemon launches chatd for an instance in the background. The
// binary next to the running executable wins over the one on PATH.
func StartDaemon(instanceName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	chatd := filepath.Join(filepath.Dir(executable), "chatd")
	if _, err := os.Stat(chatd); err != nil {
		chatd = "chatd"
	}

	cmd := exec.Command(chatd, "--instance", instanceName, "--quiet")
	// Inherit stderr so daemon startup errors are visible.
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

// Command healthcheck probes a running trackersync server and exits non-zero
// unless it reports itself healthy. It resolves the listen address the same
// way the server does.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ericfisherdev/trackersync/internal/config"
)

const (
	defaultAddr  = "127.0.0.1:8080"
	probeTimeout = 2 * time.Second
)

func main() {
	addr := defaultAddr
	if cfg, err := config.Load(); err == nil {
		addr = cfg.ListenAddr
	}

	if err := probe(context.Background(), &http.Client{Timeout: probeTimeout}, baseURL(addr)); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

type healthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// probe requests the health endpoint under base and fails unless the server
// answers 200 with status "ok".
func probe(ctx context.Context, client *http.Client, base string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/health", nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != "ok" {
		return fmt.Errorf("server %s (status %d, database %s)", body.Status, resp.StatusCode, body.Database)
	}
	return nil
}

// baseURL turns a listen address into a loopback URL. A container binds
// 0.0.0.0 but the probe runs inside it, so loopback is always reachable.
func baseURL(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		host, port, _ = net.SplitHostPort(defaultAddr)
	}

	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}

	return "http://" + net.JoinHostPort(host, port)
}

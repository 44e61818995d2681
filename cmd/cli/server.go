package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverBinary       = "mediagrab-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
	healthTimeout      = time.Second
)

// healthy reports whether the server answers its health check
func (a *apiClient) healthy() bool {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	resp, err := a.client.R().SetContext(ctx).Get("/health")
	return err == nil && resp.StatusCode() == http.StatusOK
}

// serverCandidates lists where the server binary is looked for, in order
func serverCandidates() []string {
	var paths []string
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), serverBinary))
	}
	if p, err := exec.LookPath(serverBinary); err == nil {
		paths = append(paths, p)
	}
	paths = append(paths,
		filepath.Join("/usr/local/bin", serverBinary),
		filepath.Join("/usr/bin", serverBinary),
	)
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, "go", "bin", serverBinary),
			filepath.Join(home, ".local", "bin", serverBinary),
		)
	}
	return paths
}

func findServerBinary() (string, error) {
	for _, p := range serverCandidates() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%s not found next to the CLI, in PATH or in the usual install directories", serverBinary)
}

// startServer launches the server detached from this process
func startServer() error {
	path, err := findServerBinary()
	if err != nil {
		return err
	}

	var args []string
	if serverConfig != "" {
		args = append(args, "-config", serverConfig)
	}
	cmd := exec.Command(path, args...)
	// nil stdio means the null device
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", path, err)
	}
	// reap the child if it exits while the CLI is still running
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// ensureServerRunning starts the server when it does not answer and waits
// until it does
func ensureServerRunning(a *apiClient) error {
	if a.healthy() {
		return nil
	}

	fmt.Println("Server not running, starting...")
	if err := startServer(); err != nil {
		return err
	}

	ticker := time.NewTicker(serverPollInterval)
	defer ticker.Stop()
	deadline := time.After(serverStartTimeout)
	for {
		select {
		case <-ticker.C:
			if a.healthy() {
				fmt.Println("Server started successfully")
				return nil
			}
		case <-deadline:
			return fmt.Errorf("server did not start within %v", serverStartTimeout)
		}
	}
}

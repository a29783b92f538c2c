package main_test

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

var gvBinaryPath string
var gvBinaryDir string

func TestMain(m *testing.M) {
	// Build the binary once for all tests
	if err := buildOnce(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build graphview binary: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	if gvBinaryDir != "" {
		_ = os.RemoveAll(gvBinaryDir)
	}
	os.Exit(code)
}

func buildOnce() error {
	tempDir, err := os.MkdirTemp("", "graphview-e2e-build-*")
	if err != nil {
		return err
	}
	gvBinaryDir = tempDir

	binName := "graphview"
	if runtime.GOOS == "windows" {
		binName += ".exe"
	}
	binPath := filepath.Join(tempDir, binName)

	cmd := exec.Command("go", "build", "-o", binPath, "../../cmd/graphview")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("go build failed: %v\n%s", err, out)
	}

	gvBinaryPath = binPath
	return nil
}

// runGraphview runs the binary in dir with an isolated HOME so no user
// config leaks into the run. It fails the test on a non-zero exit.
func runGraphview(t *testing.T, dir string, args ...string) (stdout, stderr string) {
	t.Helper()
	if gvBinaryPath == "" {
		t.Fatal("graphview binary not built")
	}
	cmd := exec.Command(gvBinaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"HOME="+dir,
		"XDG_CONFIG_HOME="+filepath.Join(dir, ".config"),
		"XDG_STATE_HOME="+filepath.Join(dir, ".state"),
		"GRAPHVIEW_DEBUG=",
	)
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		t.Fatalf("graphview %v failed: %v\nstdout:\n%s\nstderr:\n%s", args, err, out.String(), errOut.String())
	}
	return out.String(), errOut.String()
}

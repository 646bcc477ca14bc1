package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/use-agent/stylegrab/models"
)

func fixtureURL(t *testing.T) string {
	t.Helper()
	abs, err := filepath.Abs(filepath.Join("testdata", "gallery.html"))
	if err != nil {
		t.Fatal(err)
	}
	return "file://" + abs
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRun_WritesExports(t *testing.T) {
	u := fixtureURL(t)
	t.Chdir(t.TempDir())
	out := t.TempDir()

	stdout, stderr, err := execute(t, "--engine", "static", "--settle", "1ms", "--out", out, u)
	if err != nil {
		t.Fatalf("execute: %v\nstderr: %s", err, stderr)
	}

	data, err := os.ReadFile(filepath.Join(out, "scraped_elements.json"))
	if err != nil {
		t.Fatal(err)
	}
	var records []models.ElementRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("got %d records, want 3", len(records))
	}
	if _, err := os.Stat(filepath.Join(out, "scraped_elements.csv")); err != nil {
		t.Errorf("csv export missing: %v", err)
	}

	for _, want := range []string{"INDEX", "/a.png", "10px,20px", "3 element(s), 3 record(s), 3 warning(s) via static"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, stdout)
		}
	}
	for _, want := range []string{"found 3 element(s)", "[3/3] 100%", "warning: element 2:"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestRun_QuietSingleFormat(t *testing.T) {
	u := fixtureURL(t)
	t.Chdir(t.TempDir())
	out := t.TempDir()

	stdout, stderr, err := execute(t, "-q", "--engine", "static", "--settle", "1ms", "--formats", "csv", "--out", out, u)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if stdout != "" || stderr != "" {
		t.Errorf("quiet run printed stdout=%q stderr=%q", stdout, stderr)
	}
	if _, err := os.Stat(filepath.Join(out, "scraped_elements.json")); !os.IsNotExist(err) {
		t.Error("json export should not be written")
	}
}

func TestRun_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad format", []string{"--engine", "static", "--formats", "xml", fixtureURL(t)}, `unknown format "xml"`},
		{"navigation", []string{"--engine", "static", "--settle", "1ms", "file:///no/such/page.html"}, "NAVIGATION_FAILED"},
		{"unknown engine", []string{"--engine", "lynx", fixtureURL(t)}, "unknown engine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := execute(t, append(tt.args, "--out", t.TempDir())...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(stderr, tt.want) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.want)
			}
		})
	}
}

func TestRun_FailurePrintedOnce(t *testing.T) {
	t.Chdir(t.TempDir())

	for _, quiet := range []bool{false, true} {
		args := []string{"--engine", "static", "--settle", "1ms", "--out", t.TempDir()}
		if quiet {
			args = append(args, "-q")
		}
		_, stderr, err := execute(t, append(args, "file:///no/such/page.html")...)
		if err == nil {
			t.Fatalf("quiet=%v: expected error", quiet)
		}
		if n := strings.Count(stderr, "NAVIGATION_FAILED"); n != 1 {
			t.Errorf("quiet=%v: error printed %d times:\n%s", quiet, n, stderr)
		}
	}
}

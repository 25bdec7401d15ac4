package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TODO_SOURCE", "TODO_PATH", "TODO_ADDR", "TODO_THEME", "TODO_LOG_LEVEL", "TODO_LATENCY_MS", "TODO_STRICT_UPDATE"} {
		t.Setenv(k, "")
	}
}

// writeConfig points a json source at a fresh file in a temp dir. With
// empty set the store starts without the sample items.
func writeConfig(t *testing.T, empty bool) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "source: json\n" +
		"path: " + filepath.Join(dir, "todos.json") + "\n" +
		"theme: mono\n"
	if empty {
		cfg += "seed: []\n"
	}
	p := filepath.Join(dir, "todo.yaml")
	if err := os.WriteFile(p, []byte(cfg), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Execute(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	code, out, errOut := run(t, args...)
	if code != 0 {
		t.Fatalf("%v: exit %d\nstderr: %s", args, code, errOut)
	}
	return out
}

func TestCommandsRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, true)

	if got := mustRun(t, "--config", cfg, "add", "buy", "milk"); got != "x added #1\n" {
		t.Fatalf("add output = %q", got)
	}
	if got := mustRun(t, "--config", cfg, "add", "walk dog"); got != "x added #2\n" {
		t.Fatalf("add output = %q", got)
	}
	if got := mustRun(t, "--config", cfg, "done", "#1"); got != "x toggled\n" {
		t.Fatalf("done output = %q", got)
	}
	if got := mustRun(t, "--config", cfg, "edit", "2", "walk", "the", "dog"); got != "x saved\n" {
		t.Fatalf("edit output = %q", got)
	}

	out := mustRun(t, "--config", cfg, "ls")
	for _, want := range []string{"Todos  x 1  - 1  Total 2", "1. [x] buy milk", "2. [ ] walk the dog"} {
		if !strings.Contains(out, want) {
			t.Fatalf("ls output missing %q:\n%s", want, out)
		}
	}

	if got := mustRun(t, "--config", cfg, "rm", "1"); got != "x removed\n" {
		t.Fatalf("rm output = %q", got)
	}
	out = mustRun(t, "--config", cfg, "ls", "--group")
	if strings.Contains(out, "buy milk") {
		t.Fatalf("removed item still listed:\n%s", out)
	}
	for _, want := range []string{"Pending", "2. [ ] walk the dog", "Done", "(none)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("grouped output missing %q:\n%s", want, out)
		}
	}

	// ids keep counting after a removal
	if got := mustRun(t, "--config", cfg, "add", "again"); got != "x added #3\n" {
		t.Fatalf("add after rm = %q", got)
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, false)

	out := mustRun(t, "--config", cfg, "--source", "ephemeral", "ls")
	for _, want := range []string{"something", "Another thing", "Total 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("ephemeral ls missing %q:\n%s", want, out)
		}
	}
}

func TestEnvOverridesConfig(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, false)
	t.Setenv("TODO_SOURCE", "ephemeral")

	out := mustRun(t, "--config", cfg, "ls")
	if !strings.Contains(out, "Another thing") {
		t.Fatalf("env source ignored:\n%s", out)
	}
}

func TestExitCodes(t *testing.T) {
	clearEnv(t)
	cfg := writeConfig(t, true)

	tests := []struct {
		name    string
		args    []string
		code    int
		wantErr string
	}{
		{"unknown id", []string{"rm", "9"}, 1, "item not found: 9"},
		{"unknown id on edit", []string{"edit", "9", "x"}, 1, "item not found: 9"},
		{"blank text", []string{"add", "   "}, 2, "add: empty text"},
		{"missing id", []string{"done"}, 2, "usage: todo done <id>"},
		{"edit without text", []string{"edit", "1"}, 2, "usage: todo edit"},
		{"unknown source", []string{"--source", "nope", "ls"}, 2, "nope"},
		{"bad latency", []string{"--latency", "soon", "ls"}, 2, "latency"},
		{"unknown command", []string{"bogus"}, 2, "unknown command"},
		{"unknown theme", []string{"--theme", "solarized", "ls"}, 2, "unknown theme"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _, errOut := run(t, append([]string{"--config", cfg}, tc.args...)...)
			if code != tc.code {
				t.Fatalf("exit code = %d, want %d (stderr %q)", code, tc.code, errOut)
			}
			if !strings.Contains(errOut, tc.wantErr) {
				t.Fatalf("stderr %q does not mention %q", errOut, tc.wantErr)
			}
		})
	}
}

package tmuxtest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateEnv names the environment variable that rewrites golden files.
const UpdateEnv = "TMUXTEST_UPDATE"

// MatchSnapshot polls the screen until it equals the golden file
// testdata/<sanitized-test-name>-<hash>/<sanitized-name>.txt.
//
// Set TMUXTEST_UPDATE=1 to create or update golden files.
func (term *Terminal) MatchSnapshot(name string, wopts ...WaitOption) {
	term.t.Helper()
	MatchSnapshot(term.t, term.Screen(wopts...), name)
}

// MatchSnapshot compares out against a golden file, polling until the
// normalized capture equals it.
func MatchSnapshot(t testing.TB, out *Output, name string) {
	t.Helper()

	dir := snapshotDir(t)
	path := filepath.Join(dir, sanitizeName(name)+".txt")

	if shouldUpdate() {
		content := normalizeForSnapshot(out.String())
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("tmuxtest: snapshot: failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("tmuxtest: snapshot: failed to write golden file: %v", err)
		}
		return
	}

	golden, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("tmuxtest: snapshot: golden file not found: %s\nRun with %s=1 to create it.\n\nActual screen:\n%s",
				path, UpdateEnv, normalizeForSnapshot(out.String()))
		}
		t.Fatalf("tmuxtest: snapshot: failed to read golden file: %v", err)
	}

	want := string(golden)
	ok, _, err := out.Satisfies(func(text string) (bool, string) {
		return normalizeForSnapshot(text) == want, "screen to match " + path
	})
	if err != nil {
		t.Fatalf("tmuxtest: snapshot: %v", err)
	}
	if !ok {
		lines := Explain(OpEqual,
			strings.TrimSuffix(normalizeForSnapshot(out.String()), "\n"),
			strings.TrimSuffix(want, "\n"))
		t.Errorf("%s", failureMessage("snapshot", out, append([]string{
			"mismatch for " + name,
			"golden file: " + path,
			"run with " + UpdateEnv + "=1 to update",
		}, lines...)))
	}
}

// snapshotDir returns testdata/<sanitized-test-name>-<hash>, where the hash
// keeps names that sanitize alike apart.
func snapshotDir(t testing.TB) string {
	t.Helper()

	fullName := t.Name()
	h := sha256.Sum256([]byte(fullName))
	return filepath.Join("testdata", sanitizeName(fullName)+"-"+hex.EncodeToString(h[:4]))
}

// normalizeForSnapshot trims trailing spaces on each line and trailing blank
// lines, and ends the content with a single newline.
func normalizeForSnapshot(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}

func shouldUpdate() bool {
	v := os.Getenv(UpdateEnv)
	return v == "1" || v == "true" || v == "yes"
}

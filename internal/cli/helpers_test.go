package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetaudit/internal/audit"
	"github.com/roach88/assetaudit/internal/testutil"
)

// testEnv is one isolated CLI installation: its own database, config and
// fake clock.
type testEnv struct {
	t     *testing.T
	dir   string
	opts  *RootOptions
	clock *testutil.FakeClock
}

func newTestEnv(t *testing.T, configLines ...string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	cfg := append([]string(nil), configLines...)
	for _, def := range []string{"bulk_tick: 1ms", "bulk_step: 50"} {
		if !hasConfigKey(configLines, def) {
			cfg = append(cfg, def)
		}
	}
	cfgPath := filepath.Join(dir, "assetaudit.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(strings.Join(cfg, "\n")+"\n"), 0644))

	clock := testutil.NewFakeClock(time.Time{})
	return &testEnv{
		t:   t,
		dir: dir,
		opts: &RootOptions{
			Format:   "text",
			Config:   cfgPath,
			Database: filepath.Join(dir, "audit.db"),
			Clock:    clock,
		},
		clock: clock,
	}
}

func hasConfigKey(lines []string, line string) bool {
	key, _, _ := strings.Cut(line, ":")
	for _, l := range lines {
		if strings.HasPrefix(l, key+":") {
			return true
		}
	}
	return false
}

// json switches the environment to JSON output.
func (e *testEnv) json() *testEnv {
	e.opts.Format = "json"
	return e
}

// run executes a fresh command built by newCmd with args and returns
// stdout, stderr and the command error.
func (e *testEnv) run(newCmd func(*RootOptions) *cobra.Command, stdin string, args ...string) (string, string, error) {
	e.t.Helper()
	cmd := newCmd(e.opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// createTask creates a task through the CLI and returns its id.
func (e *testEnv) createTask(name, due string, extra ...string) string {
	e.t.Helper()
	format := e.opts.Format
	defer func() { e.opts.Format = format }()
	e.opts.Format = "json"

	args := append([]string{"create", "--name", name, "--assignee", "J. Doe", "--due", due}, extra...)
	out, _, err := e.run(NewTaskCommand, "", args...)
	require.NoError(e.t, err, out)

	var task audit.AuditTask
	decodeData(e.t, out, &task)
	return task.ID
}

// jsonResponse mirrors CLIResponse with the payload left raw.
type jsonResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *CLIError       `json:"error"`
}

func decodeResponse(t *testing.T, out string) jsonResponse {
	t.Helper()
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func decodeData(t *testing.T, out string, v interface{}) {
	t.Helper()
	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a polling
// reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

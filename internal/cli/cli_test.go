package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/wizflow/pkg/api"
)

const welcomeYAML = `id: welcome
name: Welcome
steps:
  - id: step_1
    fields:
      - id: step_1_field_1
        type: text
`

const goodbyeJSON = `{"id":"goodbye","steps":[{"id":"s","fields":[{"id":"f","type":"checkbox"}]}]}`

type harness struct {
	fs  afero.Fs
	dsn string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "wizards/welcome.yaml", []byte(welcomeYAML), 0o644))
	require.NoError(t, afero.WriteFile(fs, "wizards/goodbye.json", []byte(goodbyeJSON), 0o644))
	require.NoError(t, afero.WriteFile(fs, "wizards/notes.txt", []byte("ignored"), 0o644))
	return &harness{fs: fs, dsn: "file:" + filepath.Join(t.TempDir(), "wizflow.db")}
}

// run executes one CLI invocation against the harness SQLite database.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRoot(h.fs)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--store", "sqlite", "--dsn", h.dsn, "--log", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFieldTypesCmd(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "field-types")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, len(api.FieldTypes()))
	assert.Equal(t, "text", lines[0])
}

func TestSaveGetListRemove(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "save", "wizards/welcome.yaml")
	require.NoError(t, err)
	assert.Equal(t, "saved welcome\n", out)

	out, err = h.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "welcome\tWelcome\t1 steps\n", out)

	out, err = h.run(t, "get", "welcome", "--format", "json")
	require.NoError(t, err)
	var def api.WizardDefinition
	require.NoError(t, json.Unmarshal([]byte(out), &def))
	assert.Equal(t, "step_1_field_1", def.Steps[0].Fields[0].ID)

	out, err = h.run(t, "get", "welcome")
	require.NoError(t, err)
	assert.Contains(t, out, "id: welcome")

	_, err = h.run(t, "remove", "welcome")
	require.NoError(t, err)
	_, err = h.run(t, "get", "welcome")
	assert.ErrorIs(t, err, api.ErrDefinitionNotFound)
}

func TestSaveRenameFrom(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "save", "wizards/welcome.yaml")
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(h.fs, "hello.yaml", []byte(strings.Replace(welcomeYAML, "id: welcome", "id: hello", 1)), 0o644))
	_, err = h.run(t, "save", "hello.yaml", "--rename-from", "welcome")
	require.NoError(t, err)

	out, err := h.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "hello\tWelcome\t1 steps\n", out)
}

func TestLoadDir(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "load", "wizards")
	require.NoError(t, err)
	assert.Equal(t, "saved 2 definitions\n", out)

	out, err = h.run(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "goodbye\tgoodbye\t1 steps\nwelcome\tWelcome\t1 steps\n", out)
}

func TestSubmissionsAndLogs(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "load", "wizards")
	require.NoError(t, err)

	out, err := h.run(t, "submissions", "welcome")
	require.NoError(t, err)
	assert.Contains(t, out, "[]")

	_, err = h.run(t, "submissions")
	require.NoError(t, err)

	_, err = h.run(t, "logs", "--offset", "0")
	require.NoError(t, err)

	_, err = h.run(t, "logs", "--offset", "-1")
	assert.Error(t, err)
}

func TestErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "save", "wizards/notes.txt")
	assert.Error(t, err)

	_, err = h.run(t, "save")
	assert.Error(t, err)

	cmd := newRoot(h.fs)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--store", "cassandra", "list"})
	assert.Error(t, cmd.Execute())
}

func TestCommandsAreDocumented(t *testing.T) {
	root := newRoot(afero.NewMemMapFs())
	want := []string{"serve", "field-types", "save", "load", "remove", "get", "list", "submissions", "logs"}
	for _, name := range want {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
		assert.NotEmpty(t, sub.Short, name)
		assert.NotNil(t, sub.RunE, name)
	}
	serve, _, _ := root.Find([]string{"serve"})
	assert.NotNil(t, serve.Flags().Lookup("load"))
}

package loader

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/wizflow/pkg/api"
)

const welcomeYAML = `
id: welcome
name: Welcome
permitted:
  subject: u{trust_level}
  op: in
  values: [1, 2]
steps:
  - id: step_1
    title: About you
    fields:
      - id: step_1_field_1
        type: text
        required: true
      - id: step_1_field_2
        type: dropdown
        choices: [red, blue]
    actions:
      - id: "1"
        kind: create_topic
        params:
          title: w{step_1_field_1}
          body: hello
          tags: [intro]
  - id: step_2
    condition:
      subject: w{step_1_field_2}
      op: eq
      value: blue
    force_final_step: true
`

func newFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, body := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(body), 0o644))
	}
	return fs
}

func TestLoadFile_YAML(t *testing.T) {
	l := New(newFS(t, map[string]string{"defs/welcome.yaml": welcomeYAML}))

	def, err := l.LoadFile("defs/welcome.yaml")
	require.NoError(t, err)

	assert.Equal(t, "welcome", def.ID)
	require.Len(t, def.Steps, 2)
	assert.Equal(t, api.FieldDropdown, def.Steps[0].Fields[1].Type)
	assert.True(t, def.Steps[0].Fields[0].Required)
	assert.True(t, def.Steps[1].ForceFinalStep)
	assert.Equal(t, "blue", def.Steps[1].Condition.Value)

	// Numbers and lists take their JSON shapes.
	require.NotNil(t, def.Permitted)
	assert.Equal(t, []any{float64(1), float64(2)}, def.Permitted.Values)
	assert.Equal(t, []any{"intro"}, def.Steps[0].Actions[0].Params["tags"])
}

func TestLoadFile_JSON(t *testing.T) {
	l := New(newFS(t, map[string]string{
		"w.json": `{"id":"json_wizard","steps":[{"id":"s","fields":[{"id":"n","type":"number"}]}]}`,
	}))

	def, err := l.LoadFile("w.json")
	require.NoError(t, err)
	assert.Equal(t, "json_wizard", def.ID)
	assert.Equal(t, api.FieldNumber, def.Steps[0].Fields[0].Type)
}

func TestLoadFile_Errors(t *testing.T) {
	l := New(newFS(t, map[string]string{
		"notes.txt":  "hello",
		"bad.yaml":   "id: [unterminated",
		"empty.yaml": "",
	}))

	_, err := l.LoadFile("notes.txt")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = l.LoadFile("bad.yaml")
	assert.ErrorContains(t, err, "bad.yaml")

	_, err = l.LoadFile("empty.yaml")
	assert.Error(t, err)

	_, err = l.LoadFile("missing.json")
	assert.Error(t, err)
}

func TestLoadDir_SortedAndFiltered(t *testing.T) {
	l := New(newFS(t, map[string]string{
		"defs/b.json":        `{"id":"b","steps":[]}`,
		"defs/a.yml":         "id: a\nsteps: []\n",
		"defs/README.md":     "# wizards",
		"defs/nested/c.yaml": "id: c\nsteps: []\n",
	}))

	defs, err := l.LoadDir("defs")
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "a", defs[0].ID)
	assert.Equal(t, "b", defs[1].ID)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	l := New(fs)
	src, err := Parse([]byte(welcomeYAML), FormatYAML)
	require.NoError(t, err)

	for _, path := range []string{"out/welcome.yaml", "out/welcome.json"} {
		require.NoError(t, l.WriteFile(path, src))
		got, err := l.LoadFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, src, got, path)
	}
}

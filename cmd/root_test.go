package cmd

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandReportsRewrittenStage(t *testing.T) {
	t.Parallel()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/entry.js", []byte("const x = 1;"), 0o644))

	gs := &globalState{fs: fs, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	root := newRootCmd(gs)
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"run", "/entry.js", "--base-id", "file:///"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "/entry.js")
	assert.Contains(t, out.String(), "REWRITTEN")
}

func TestRunCommandRequiresEntries(t *testing.T) {
	t.Parallel()
	gs := &globalState{fs: afero.NewMemMapFs(), stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	root := newRootCmd(gs)
	root.SetArgs([]string{"run"})

	err := root.Execute()
	assert.Error(t, err)
}

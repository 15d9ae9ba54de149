package local_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/switchprep/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/switchprep/pkg/batch/support/util/exception"
)

func TestWorkspace_RecreateCopiesTree(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "inputs", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "inputs", "a.csv"), []byte("x\n1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(base, "inputs", "sub", "b.txt"), []byte("b"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "inputs_start"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "inputs_start", "stale.csv"), []byte("old"), 0o644))

	ws, err := local.NewWorkspace(base)
	require.NoError(t, err)
	require.NoError(t, ws.Recreate(ctx, "inputs_start", "inputs"))

	assert.True(t, ws.Exists("inputs_start/a.csv"))
	assert.True(t, ws.Exists("inputs_start/sub/b.txt"))
	assert.False(t, ws.Exists("inputs_start/stale.csv"))

	r, err := ws.Open(ctx, "inputs_start/a.csv")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(data))
}

func TestWorkspace_RecreateMissingSource(t *testing.T) {
	ws, err := local.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	err = ws.Recreate(context.Background(), "inputs_start", "inputs")
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrMissingInput))
}

func TestWorkspace_PathEscape(t *testing.T) {
	ws, err := local.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	_, err = ws.Path("..", "etc")
	assert.Error(t, err)
	assert.Error(t, ws.Recreate(context.Background(), ".", ""))
}

func TestWorkspace_ListAndCopy(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	ws, err := local.NewWorkspace(base)
	require.NoError(t, err)
	for _, n := range []string{"carbon_policies_050.csv", "carbon_policies_000.csv", "carbon_policies.csv", "loads.csv"} {
		w, err := ws.Create(ctx, "in/"+n)
		require.NoError(t, err)
		_, err = w.Write([]byte(n))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	var got []string
	require.NoError(t, ws.List(ctx, "in", "carbon_policies_???.csv", func(name string) error {
		got = append(got, name)
		return nil
	}))
	assert.Equal(t, []string{"in/carbon_policies_000.csv", "in/carbon_policies_050.csv"}, got)

	require.NoError(t, ws.CopyFile(ctx, "in/loads.csv", "out/loads.csv"))
	assert.True(t, ws.Exists("out/loads.csv"))
	assert.True(t, errors.Is(ws.CopyFile(ctx, "in/none.csv", "out/none.csv"), exception.ErrMissingInput))
}

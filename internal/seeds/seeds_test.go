package seeds_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/EmpoweredVote/EV-Dilemmas/internal/dilemmas"
	"github.com/EmpoweredVote/EV-Dilemmas/internal/seeds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_EmbeddedDefaults(t *testing.T) {
	ds, err := seeds.Load("")
	require.NoError(t, err)
	require.NotEmpty(t, ds)

	trolley := ds[0]
	assert.Equal(t, "trolley-problem", trolley.ID)
	require.Len(t, trolley.Options, 2)
	assert.Equal(t, "pull-lever", trolley.Options[0].OptionID)
	assert.Equal(t, 1, trolley.Options[0].Position)
	assert.Equal(t, 2, trolley.Options[1].Position)
	assert.Equal(t, "trolley-problem", trolley.Options[1].DilemmaID)
	assert.Contains(t, []string(trolley.Tags), "classic")
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "d.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
dilemmas:
  - id: d1
    title: One
    options:
      - {id: a, text: A, percentage: 40}
      - {id: b, text: B}
`), 0o600))

	ds, err := seeds.Load(path)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	require.NotNil(t, ds[0].Options[0].Percentage)
	assert.Equal(t, 40, *ds[0].Options[0].Percentage)
	assert.Nil(t, ds[0].Options[1].Percentage)

	_, err = seeds.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":          `dilemmas: []`,
		"missing title":  "dilemmas:\n  - id: x\n    options: [{id: a, text: A}, {id: b, text: B}]\n",
		"one option":     "dilemmas:\n  - id: x\n    title: X\n    options: [{id: a, text: A}]\n",
		"dup option":     "dilemmas:\n  - id: x\n    title: X\n    options: [{id: a, text: A}, {id: a, text: B}]\n",
		"dup dilemma":    "dilemmas:\n  - {id: x, title: X, options: [{id: a, text: A}, {id: b, text: B}]}\n  - {id: x, title: Y, options: [{id: a, text: A}, {id: b, text: B}]}\n",
		"bad percentage": "dilemmas:\n  - id: x\n    title: X\n    options: [{id: a, text: A, percentage: 140}, {id: b, text: B}]\n",
		"unknown field":  "dilemmas:\n  - id: x\n    title: X\n    colour: red\n    options: [{id: a, text: A}, {id: b, text: B}]\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := seeds.Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

type recordingWriter struct {
	ids []string
	err error
}

func (w *recordingWriter) UpsertDilemma(ctx context.Context, d *dilemmas.Dilemma) error {
	if w.err != nil {
		return w.err
	}
	w.ids = append(w.ids, d.ID)
	return nil
}

func TestSeedAll(t *testing.T) {
	ds, err := seeds.Load("")
	require.NoError(t, err)

	w := &recordingWriter{}
	require.NoError(t, seeds.SeedAll(context.Background(), w, ds, nil))
	assert.Len(t, w.ids, len(ds))

	w = &recordingWriter{err: errors.New("db down")}
	assert.Error(t, seeds.SeedAll(context.Background(), w, ds, nil))
}

package annotations

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/sentigraph/internal/types"
)

const sample = `2021-02-13 Draghi government sworn in
2021-02-17: confidence vote in the Senate

Week of protests
2021-02-17 second note
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, sample, f.Raw)
	assert.Equal(t, []Entry{
		{Date: "2021-02-13", Note: "Draghi government sworn in"},
		{Date: "2021-02-17", Note: "confidence vote in the Senate"},
		{Date: "2021-02-17", Note: "second note"},
	}, f.Entries)
	assert.Equal(t, []string{"Week of protests"}, f.Other)

	assert.Equal(t, []string{"confidence vote in the Senate", "second note"}, f.ForDate("2021-02-17"))
	assert.Empty(t, f.ForDate("2021-02-14"))
}

func TestForDate_NilFile(t *testing.T) {
	var f *File
	assert.Nil(t, f.ForDate(types.Date("2021-02-13")))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Dates.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, f.Entries, 3)

	_, err = Load(filepath.Join(dir, "missing.txt"))
	assert.True(t, os.IsNotExist(err))
}

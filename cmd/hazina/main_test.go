package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/hazina/internal/pipeline"
)

func TestParseFilters(t *testing.T) {
	t.Run("parses field=value pairs", func(t *testing.T) {
		filter, err := parseFilters([]string{"source_id=cbk", "risk_level=low"})
		require.NoError(t, err)
		assert.Equal(t, "cbk", filter["source_id"])
		assert.Equal(t, "low", filter["risk_level"])
	})

	t.Run("empty input yields nil filter", func(t *testing.T) {
		filter, err := parseFilters(nil)
		require.NoError(t, err)
		assert.Nil(t, filter)
	})

	t.Run("rejects malformed pairs", func(t *testing.T) {
		for _, bad := range []string{"source_id", "=cbk", "source_id="} {
			_, err := parseFilters([]string{bad})
			assert.Error(t, err, bad)
		}
	})
}

func TestLoadDescriptors(t *testing.T) {
	t.Run("array file with relative raw paths", func(t *testing.T) {
		dir := t.TempDir()
		docs := []pipeline.ScrapedDocument{
			{DocID: "cbk_001", SourceID: "cbk", RawFile: "raw/cbk_001.txt"},
			{DocID: "kba_001", SourceID: "kba", RawFile: filepath.Join(dir, "kba_001.txt")},
		}
		data, err := json.Marshal(docs)
		require.NoError(t, err)
		path := filepath.Join(dir, "batch.json")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		loaded, err := loadDescriptors(path)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		assert.Equal(t, filepath.Join(dir, "raw/cbk_001.txt"), loaded[0].RawFile)
		assert.Equal(t, filepath.Join(dir, "kba_001.txt"), loaded[1].RawFile)
	})

	t.Run("directory of descriptor files", func(t *testing.T) {
		dir := t.TempDir()
		for _, id := range []string{"a", "b"} {
			doc := pipeline.ScrapedDocument{DocID: id, SourceID: "cbk", RawFile: id + ".txt"}
			data, err := json.Marshal(doc)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), data, 0o644))
		}
		// Non-JSON entries are skipped.
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("raw"), 0o644))

		loaded, err := loadDescriptors(dir)
		require.NoError(t, err)
		assert.Len(t, loaded, 2)
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := loadDescriptors(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

package embedded

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseGrammarIsEmbedded(t *testing.T) {
	data, err := BaseGrammar()
	require.NoError(t, err)
	assert.Contains(t, string(data), "scopeName: yaml-sql.injection")
}

func TestExtractBaseGrammar(t *testing.T) {
	dir := t.TempDir()

	path, err := ExtractBaseGrammar(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "base.tmLanguage.yaml"), path)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	embedded, _ := BaseGrammar()
	assert.Equal(t, embedded, written)

	_, err = ExtractBaseGrammar(dir)
	assert.Error(t, err, "second extract must not overwrite")
}

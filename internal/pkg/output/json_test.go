package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTTY_NonFile(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
}

func TestWriteJSON_CompactWhenPiped(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSON(&buf, map[string]any{"pattern": "<a&b>", "start": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"pattern":"<a&b>","start":1}`+"\n", buf.String())
}

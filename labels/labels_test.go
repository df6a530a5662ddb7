package labels

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOrder(t *testing.T) {
	require.Equal(t, 7, Default.Len())

	first, ok := Default.At(0)
	require.True(t, ok)
	assert.Equal(t, Label("Cocoa Black Pod"), first)

	last, ok := Default.At(6)
	require.True(t, ok)
	assert.Equal(t, Label("Maize Healthy"), last)

	_, ok = Default.At(7)
	assert.False(t, ok)
	_, ok = Default.At(-1)
	assert.False(t, ok)

	assert.Equal(t, 3, Default.Index("Maize Blight"))
	assert.Equal(t, -1, Default.Index("Rice Blast"))
}

func TestRead(t *testing.T) {
	s, err := Read(strings.NewReader("Cocoa Black Pod\n\n  Cocoa Healthy  \nMaize Healthy\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cocoa Black Pod", "Cocoa Healthy", "Maize Healthy"}, s.Strings())
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader("\n\n"))
	assert.Error(t, err)

	_, err = Read(strings.NewReader("a\nb\na\n"))
	assert.ErrorContains(t, err, "duplicate")
}

func TestLabelsIsCopy(t *testing.T) {
	l := Default.Labels()
	l[0] = "changed"

	first, _ := Default.At(0)
	assert.Equal(t, Label("Cocoa Black Pod"), first)
}

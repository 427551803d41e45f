package table

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	assert.Empty(t, Render(nil, [][]string{{"x"}}, nil))

	out := Render([]string{"Phase", "Elapsed"},
		[][]string{{"WaitNode", "1s"}, {"Done"}, {"MineExtra", "2s", "dropped"}},
		[]Alignment{AlignLeft, AlignRight})

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 7) // top, header, separator, 3 rows, bottom

	// headers keep their case
	assert.Contains(t, lines[1], "Phase")
	assert.Contains(t, lines[1], "Elapsed")
	assert.NotContains(t, out, "PHASE")

	assert.Contains(t, out, "WaitNode")
	assert.Contains(t, out, "Done")
	assert.NotContains(t, out, "dropped")

	// right aligned column: the value touches the border padding
	assert.Contains(t, lines[3], "      1s │")
}

package utils_test

import (
	"testing"

	"github.com/robalyx/apachemgr/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestCompressAllWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "GET / HTTP/1.1", utils.CompressAllWhitespace("\n  GET   /\tHTTP/1.1 \n"))
	assert.Empty(t, utils.CompressAllWhitespace(" \n\t "))
}

func TestSplitColumns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want []string
	}{
		{name: "empty line", line: "   ", want: nil},
		{name: "tab separated", line: "Srv\tPID\tM", want: []string{"Srv", "PID", "M"}},
		{
			name: "spaces inside a cell survive",
			line: "0-0  1234  W  GET / HTTP/1.1",
			want: []string{"0-0", "1234", "W", "GET / HTTP/1.1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, utils.SplitColumns(tt.line))
		})
	}
}

func TestSplitBlocks(t *testing.T) {
	t.Parallel()

	blocks := utils.SplitBlocks("a\r\nb\n\n\n c \n")
	assert.Equal(t, [][]string{{"a", "b"}, {" c "}}, blocks)
	assert.Empty(t, utils.SplitBlocks("\n \n"))
}

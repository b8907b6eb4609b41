package keyboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRowsFromChunks(t *testing.T) {
	btns := []InlineBtn{
		{Text: "Juja", Data: "location|Juja"},
		{Text: "Ruiru", Data: "location|Ruiru"},
		{Text: "Thika", Data: "location|Thika"},
	}
	markup := InlineButtonsRows(Chunk(btns, 2)...)
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, 2)
	require.Len(t, markup.InlineKeyboard[0], 2)
	require.Len(t, markup.InlineKeyboard[1], 1)

	b := markup.InlineKeyboard[1][0]
	require.Equal(t, "Thika", b.Text)
	require.Equal(t, "location|Thika", b.Data)
	require.Empty(t, b.Unique)
}

func TestInlineButtonsRowsSkipsEmpty(t *testing.T) {
	require.Nil(t, InlineButtonsRows())
	require.Nil(t, InlineButtonsRows(nil, []InlineBtn{}))

	markup := InlineButtonsRows(nil, []InlineBtn{{Text: "x", Data: "favorites"}})
	require.Len(t, markup.InlineKeyboard, 1)
}

func TestChunk(t *testing.T) {
	require.Equal(t, [][]int{{1, 2, 3}, {4, 5}}, Chunk([]int{1, 2, 3, 4, 5}, 3))
	require.Empty(t, Chunk([]int(nil), 2))
	require.Equal(t, [][]int{{1}, {2}}, Chunk([]int{1, 2}, -1))
}

package callbacks

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		cb           *tele.Callback
		key, payload string
	}{
		{nil, "", ""},
		{&tele.Callback{Data: "restart"}, "restart", ""},
		{&tele.Callback{Data: "budget|0|inf"}, "budget", "0|inf"},
		{&tele.Callback{Data: "\fpage|next"}, "page", "next"},
		{&tele.Callback{Unique: "location", Data: "Thika"}, "location", "Thika"},
	}
	for _, tc := range cases {
		key, payload := ParseCallbackData(tc.cb)
		require.Equal(t, tc.key, key)
		require.Equal(t, tc.payload, payload)
	}
}

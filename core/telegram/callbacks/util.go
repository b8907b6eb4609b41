// Package callbacks splits inline button data into a routing key and its
// parameters.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Separator joins the key and parameters of callback data.
const Separator = "|"

// ParseCallbackData splits callback data into its key (the first
// Separator-delimited token) and the remaining parameters. Data produced by
// telebot's own Btn encoding ("\f<unique>|<payload>") is accepted too.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	key, params, _ := strings.Cut(raw, Separator)
	return strings.TrimSpace(key), params
}

// CallbackKey returns the routing key of the current callback.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// RawData returns the callback data exactly as the button carried it.
func RawData(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		if cb.Data == "" {
			return cb.Unique
		}
		return cb.Unique + Separator + cb.Data
	}
	return cb.Data
}

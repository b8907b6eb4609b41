package format

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Thousands renders n with comma digit grouping, e.g. 15000 -> "15,000".
func Thousands(n int) string {
	return printer.Sprintf("%d", n)
}

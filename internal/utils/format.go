package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators, e.g. 38,000,000
func FormatCount[T ~int | ~int64](n T) string {
	return printer.Sprintf("%d", n)
}

// Package translate formats user visible messages for the current locale.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const fallbackLocale = "en-US"

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("arm64sim: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{fallbackLocale}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// SetLanguage forces the message printer to a specific language tag,
// ignoring the system locale.
func SetLanguage(tag language.Tag) {
	printer = message.NewPrinter(tag)
}

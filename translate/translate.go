// Package translate formats user-facing text for the host locale.
package translate

import (
	"io"

	"github.com/jeandeaual/go-locale"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/message"
)

var printer *message.Printer

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		logrus.WithError(err).Debug("rvpipe: locale lookup failed")
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	printer = message.NewPrinter(message.MatchLanguage(locales...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}

// Fprintf writes the translated format to w.
func Fprintf(w io.Writer, key message.Reference, args ...any) error {
	_, err := printer.Fprintf(w, key, args...)
	return err
}

// Errorf returns an error whose text is the translated format.
func Errorf(key message.Reference, args ...any) error {
	return errors.New(From(key, args...))
}

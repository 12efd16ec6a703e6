package runtime

import (
	"io"

	"github.com/sirupsen/logrus"
)

// newDiscardLogger is the default used by VM and Table when a caller
// doesn't supply its own *logrus.Logger: diagnostics are an ambient
// concern, not something a library consumer should have to opt out of.
func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

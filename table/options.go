package table

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/go-fstable/fstable/internal/options"
)

// Option configures a Table at Create or Open time.
type Option = options.Option[*Table]

// WithLogger sets the logger used for diagnostic messages around region
// selection and fallback. The default is a logrus.Logger writing to
// io.Discard, so a Table is silent unless a logger is supplied.
func WithLogger(logger logrus.FieldLogger) Option {
	return options.NoError(func(t *Table) {
		t.log = logger
	})
}

func defaultLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return logger
}

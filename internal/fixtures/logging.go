package fixtures

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type writer struct {
	tb testing.TB
}

var _ io.Writer = (*writer)(nil)

func (w writer) Write(p []byte) (int, error) {
	w.tb.Log(string(p))
	return len(p), nil
}

// NewTestLogger returns a logger writing through tb.Log.
func NewTestLogger(tb testing.TB) logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(writer{tb: tb})
	return l
}

// NewCapturingLogger returns a logger writing through tb.Log, and a hook holding every entry logged.
func NewCapturingLogger(tb testing.TB) (logrus.FieldLogger, *test.Hook) {
	l := logrus.New()
	l.SetLevel(logrus.DebugLevel)
	l.SetOutput(writer{tb: tb})
	return l, test.NewLocal(l)
}

// Messages returns the messages of the entries at level captured by hook.
func Messages(hook *test.Hook, level logrus.Level) []string {
	var msgs []string
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

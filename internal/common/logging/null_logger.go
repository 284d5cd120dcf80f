package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NullLogger discards everything logged to it. Components take their logger
// as an option so tests can pass an entry derived from this.
var NullLogger = &logrus.Logger{
	Out:       io.Discard,
	Formatter: new(logrus.TextFormatter),
	Hooks:     make(logrus.LevelHooks),
	Level:     logrus.PanicLevel,
}

// NullEntry returns a silenced entry for components that log through a
// *logrus.Entry.
func NullEntry() *logrus.Entry {
	return logrus.NewEntry(NullLogger)
}

package common

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/gaoyaxin/kafka/internal/common/logging"
)

// ConfigureLogging sets up the process-wide logger for harness runs.
func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
}

// ConfigureCommandLineLogging routes log lines to stderr with a minimal
// formatter so that reports printed on stdout stay machine-readable.
func ConfigureCommandLineLogging() {
	log.SetFormatter(&logging.CommandLineFormatter{})
	log.SetOutput(os.Stderr)
}

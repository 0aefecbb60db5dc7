package common

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging sets the global logrus level and formatter.
func ConfigureLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	log.SetLevel(lvl)
	//nolint:exhaustruct
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	return nil
}

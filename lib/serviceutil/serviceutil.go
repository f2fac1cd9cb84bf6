package serviceutil

import (
	"errors"
	"log/slog"
	"os"
)

// Fatal logs an error and exits with status 1.
func Fatal(message string, err error) {
	if err == nil {
		err = errors.New(message)
	}
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

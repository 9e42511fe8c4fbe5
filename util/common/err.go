// Package common provides small error helpers used across the server.
package common

import (
	"errors"

	"github.com/recipebox/recipebox/logger"
)

// Combine joins the non-nil errors into one, returning nil when all are nil.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}

// Recover must be deferred directly; it logs the recovered panic with msg.
func Recover(msg string) any {
	panicErr := recover()
	if panicErr != nil {
		if msg != "" {
			logger.Error(msg, "panic:", panicErr)
		}
	}
	return panicErr
}

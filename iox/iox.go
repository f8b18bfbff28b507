// Package iox holds the cleanup helpers used in defers and test cleanups,
// where an error from closing or syncing has nowhere useful to go.
package iox

import "io"

// DiscardClose closes c and ignores the error, e.g. a Lode writer or an HTTP
// response body at the end of a command:
//
//	defer iox.DiscardClose(writer)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc defers closing c to a cleanup hook, e.g. a notifier in a test:
//
//	t.Cleanup(iox.CloseFunc(notifier))
func CloseFunc(c io.Closer) func() {
	return func() { DiscardClose(c) }
}

// DiscardErr calls fn and ignores the error. zap's Sync on stderr fails on
// most terminals, so the CLI drops it:
//
//	defer iox.DiscardErr(logger.Sync)
func DiscardErr(fn func() error) { _ = fn() }

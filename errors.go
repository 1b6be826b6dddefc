package pricewatch

import "fmt"

// FatalStartupError aborts the whole run: no rendering session could be
// acquired, or the store could not be reached before a full crawl.
type FatalStartupError struct {
	Err error
}

func (e *FatalStartupError) Error() string {
	return fmt.Sprintf("fatal startup error: %v", e.Err)
}

func (e *FatalStartupError) Unwrap() error { return e.Err }

// NavigationError marks a timeout or network failure on a single URL.
// The item is skipped and the run continues.
type NavigationError struct {
	Url string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed for %s: %v", e.Url, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ExtractionError marks a page that rendered fine but did not expose the
// required product markup. Counted separately from navigation errors.
type ExtractionError struct {
	Url    string
	Reason string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %s", e.Url, e.Reason)
}

// PersistenceError marks a store write failure. Logged and counted, never
// aborts the run, except for the existing-URL fetch before a full crawl.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

package discovery

import (
	"errors"
	"fmt"
)

// Kind classifies a resolution failure so callers can decide between retry,
// abort, and user-facing diagnostics.
type Kind string

const (
	// KindLibraryNotSupported means the URL matched no adapter rule.
	// Not retryable.
	KindLibraryNotSupported Kind = "library_not_supported"

	// KindSourceUnavailable means every metadata endpoint of a recognized
	// library was unreachable after retries. Retryable later.
	KindSourceUnavailable Kind = "source_unavailable"

	// KindManifestEmpty means the manifest parsed but yielded zero pages.
	KindManifestEmpty Kind = "manifest_empty"

	// KindManifestIncomplete means the resolved page count is materially
	// below the declared count, or pagination collapsed to a single page.
	KindManifestIncomplete Kind = "manifest_incomplete"

	// KindPageCountMismatch means arithmetically generated page URLs were
	// proven wrong by a probe or by the download stage.
	KindPageCountMismatch Kind = "page_count_mismatch"

	// KindCancelled means the caller aborted the resolution.
	KindCancelled Kind = "cancelled"
)

// Error is the typed failure returned by every non-success path in this
// package. Adapters return the most specific kind they can determine.
type Error struct {
	Kind    Kind
	Library AdapterID
	URL     string

	// Found and Expected carry page counts for KindManifestIncomplete
	// and KindPageCountMismatch.
	Found    int
	Expected int

	// Hint is an optional user-facing remedy, e.g. "use a direct manifest
	// URL instead of the catalog page".
	Hint string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	switch e.Kind {
	case KindLibraryNotSupported:
		msg = fmt.Sprintf("no supported library recognizes URL %q", e.URL)
	case KindSourceUnavailable:
		msg = fmt.Sprintf("%s: metadata endpoints unreachable", e.Library)
	case KindManifestEmpty:
		msg = fmt.Sprintf("%s: manifest contains no pages", e.Library)
	case KindManifestIncomplete:
		msg = fmt.Sprintf("%s: resolved only %d of %d declared pages", e.Library, e.Found, e.Expected)
	case KindPageCountMismatch:
		msg = fmt.Sprintf("%s: generated page URLs do not match the source (found %d, expected %d)", e.Library, e.Found, e.Expected)
	case KindCancelled:
		msg = "resolution cancelled"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Hint)
	}
	return msg
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the same URL later.
func (e *Error) Retryable() bool {
	return e.Kind == KindSourceUnavailable
}

// KindOf extracts the Kind from any error. Unclassified errors report
// KindSourceUnavailable, the only safe default for a recognized library.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindSourceUnavailable
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

func errNotSupported(url string) *Error {
	return &Error{
		Kind: KindLibraryNotSupported,
		URL:  url,
		Hint: "check the URL or request support for this library",
	}
}

func errUnavailable(lib AdapterID, url string, cause error) *Error {
	return &Error{Kind: KindSourceUnavailable, Library: lib, URL: url, Err: cause}
}

func errEmpty(lib AdapterID, url string) *Error {
	return &Error{
		Kind:    KindManifestEmpty,
		Library: lib,
		URL:     url,
		Hint:    "use a direct manifest URL instead of the catalog page",
	}
}

func errIncomplete(lib AdapterID, found, expected int) *Error {
	return &Error{Kind: KindManifestIncomplete, Library: lib, Found: found, Expected: expected}
}

func errCancelled(lib AdapterID) *Error {
	return &Error{Kind: KindCancelled, Library: lib}
}

// NewPageCountMismatch is used by the download stage to report generated
// URLs that turned out not to exist.
func NewPageCountMismatch(lib AdapterID, url string, found, expected int) *Error {
	return &Error{
		Kind:     KindPageCountMismatch,
		Library:  lib,
		URL:      url,
		Found:    found,
		Expected: expected,
	}
}

package domain

import "errors"

var (
	// ErrNotATweet is returned when an element fails every tweet heuristic.
	// This is a normal negative result, not a failure.
	ErrNotATweet = errors.New("element is not a tweet")

	// ErrNoContentSignal is returned when extraction finds no usable
	// author, text or link signal at all.
	ErrNoContentSignal = errors.New("no identifiable content signal")

	// ErrActionsBarNotFound is returned when every actions-bar lookup
	// strategy fails for an element.
	ErrActionsBarNotFound = errors.New("actions bar not found")

	// ErrExpansionTimeout is returned when a show-more activation never
	// confirms completion within the bounded poll window.
	ErrExpansionTimeout = errors.New("text expansion did not complete")

	// ErrInvalidURL is returned when a URL is not a tweet or timeline URL.
	ErrInvalidURL = errors.New("invalid tweet URL format")

	// ErrTweetNotFound is returned when a requested tweet does not exist
	// or was deleted.
	ErrTweetNotFound = errors.New("tweet not found or deleted")

	// ErrScanFailed is returned when a page scan could not run at all.
	ErrScanFailed = errors.New("failed to scan page")

	// ErrRateLimited is returned when the per-client scan budget is spent.
	ErrRateLimited = errors.New("rate limit exceeded")
)

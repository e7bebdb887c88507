// SPDX-License-Identifier: MPL-2.0

// Package watch keeps the import map current while files change.
//
// A Watcher is one fsnotify handle over the project tree. A Scheduler owns
// the watch loop: relevant events arm a debounce timer, and when the timer
// fires the Scheduler closes the handle, runs one rebuild and opens a fresh
// handle. Events, the timer and the rebuild all run on the Scheduler's
// goroutine, so two rebuilds never overlap.
package watch

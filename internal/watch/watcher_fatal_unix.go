// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import (
	"errors"
	"syscall"
)

// isFatalFsnotifyError reports whether err means the watch handle can no
// longer deliver events, which ends the rebuild loop:
//   - ENOSPC: fs.inotify.max_user_watches exhausted
//   - EMFILE: per-process file descriptor limit reached
//   - ENFILE: system-wide file descriptor limit reached
func isFatalFsnotifyError(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}

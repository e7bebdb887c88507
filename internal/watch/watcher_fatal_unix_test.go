// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

func platformFatalCases() []fatalCase {
	return []fatalCase{
		{name: "inotify watches exhausted", errno: syscall.ENOSPC, fatal: true},
		{name: "process fd limit", errno: syscall.EMFILE, fatal: true},
		{name: "system fd limit", errno: syscall.ENFILE, fatal: true},
		{name: "permission denied", errno: syscall.EACCES, fatal: false},
		{name: "directory vanished", errno: syscall.ENOENT, fatal: false},
	}
}

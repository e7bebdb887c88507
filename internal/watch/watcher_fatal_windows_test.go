// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import "syscall"

func platformFatalCases() []fatalCase {
	return []fatalCase{
		{name: "handle limit", errno: errnoTooManyOpenFiles, fatal: true},
		{name: "watched directory removed", errno: errnoInvalidHandle, fatal: true},
		{name: "notification buffer", errno: errnoNotEnoughMemory, fatal: true},
		{name: "access denied", errno: syscall.Errno(5), fatal: false},
		{name: "file not found", errno: syscall.Errno(2), fatal: false},
	}
}

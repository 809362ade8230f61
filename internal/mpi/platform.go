package mpi

import "runtime"

func isWindows() bool {
	return runtime.GOOS == "windows"
}

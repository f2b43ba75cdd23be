package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"hlssafe/internal/deps"
	"hlssafe/internal/encoding"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckEncoder reports which ffmpeg an encode would launch.
func CheckEncoder(resolver *encoding.Resolver) Result {
	const name = "FFmpeg"

	report := deps.CheckEncoder(resolver)
	if !report.Ready() {
		return Result{Name: name, Detail: encoding.ErrExecutableNotFound.Error()}
	}
	for _, candidate := range report.Candidates {
		if candidate.Available {
			return Result{Name: name, Passed: true, Detail: candidate.Command}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (from PATH)", report.Fallback.Command)}
}

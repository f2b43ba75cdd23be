package encoding

import "errors"

// Result is the terminal outcome of an encode: either Success with the
// output path or a failure with a user-facing message.
type Result struct {
	Success    bool   `json:"success"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(outputPath string) Result {
	return Result{Success: true, OutputPath: outputPath}
}

// Failed builds a failed result carrying message verbatim.
func Failed(message string) Result {
	return Result{Success: false, Error: message}
}

// FailureFromError converts an orchestration error into a failed Result.
// Launch errors surface the system message unchanged.
func FailureFromError(err error) Result {
	if err == nil {
		return Failed("unknown error")
	}
	var launch *LaunchError
	if errors.As(err, &launch) {
		return Failed(launch.Error())
	}
	if errors.Is(err, ErrExecutableNotFound) {
		return Failed(ErrExecutableNotFound.Error())
	}
	return Failed(err.Error())
}

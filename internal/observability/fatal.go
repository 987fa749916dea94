package observability

import (
	"fmt"
	"os"
	"path"
	"runtime"

	"go.uber.org/zap"
)

// osExit is swapped out in tests.
var osExit = os.Exit

// ExitCode is the status used when Fatal terminates the process.
const ExitCode = 1

// Fatal logs err together with the function that reported it and, unless
// pass is true, flushes the logger and terminates the process.
//
// The message has the form "MSG: [<err>], WHERE:[<pkg>.<func>]".
func Fatal(logger *zap.Logger, err error, pass bool) {
	FatalSkip(logger, err, pass, 1)
}

// FatalSkip is Fatal for helpers that wrap it; skip counts the extra frames
// between the reporting function and this call.
func FatalSkip(logger *zap.Logger, err error, pass bool, skip int) {
	if logger == nil {
		logger = GetLogger()
	}

	msg := fmt.Sprintf("MSG: [%v], WHERE:[%s]", err, CallerName(skip+1))
	logger.WithOptions(zap.AddCallerSkip(skip+1)).Error(msg, zap.Error(err))

	if pass {
		return
	}
	syncLogger(logger)
	osExit(ExitCode)
}

// CallerName returns "<pkg>.<func>" for the function skip frames above the
// caller of CallerName.
func CallerName(skip int) string {
	pc, _, _, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	// Drop the import path, keeping "session.(*Session).WaitPage".
	return path.Base(fn.Name())
}

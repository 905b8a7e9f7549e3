package safe

import (
	"log/slog"
	"runtime/debug"
	"strings"
)

// Run executes fn and turns any panic into an error log with a trimmed
// stack trace instead of crashing the process.
func Run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", "safe.Run"),
				slog.String("stack", stackTrace(3)),
			)
		}
	}()

	fn()
}

func stackTrace(skipFrames int) string {
	lines := strings.Split(string(debug.Stack()), "\n")

	var formatted []string
	formatted = append(formatted, "Stack trace:")

	startIdx := skipFrames
	if startIdx < len(lines) {
		if startIdx == 0 && len(lines) > 0 {
			formatted = append(formatted, "  "+lines[0])
			startIdx = 1
		}

		for i := startIdx; i < len(lines) && i < startIdx+20; i++ {
			line := strings.TrimSpace(lines[i])
			if line != "" {
				formatted = append(formatted, "  "+line)
			}
		}

		if len(lines) > startIdx+20 {
			formatted = append(formatted, "  ... (truncated)")
		}
	}

	return strings.Join(formatted, "\n")
}

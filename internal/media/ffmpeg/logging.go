package ffmpeg

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/asticode/go-astiav"

	"skmotion/internal/logging"
)

var logOnce sync.Once

// RouteLogs forwards libav log lines to logger. Only the first call takes
// effect because libav holds a single process-wide callback.
func RouteLogs(logger *slog.Logger) {
	logOnce.Do(func() {
		logger = logging.NewComponentLogger(logger, "ffmpeg")
		astiav.SetLogLevel(astiav.LogLevelWarning)
		astiav.SetLogCallback(func(c astiav.Classer, l astiav.LogLevel, _, msg string) {
			msg = strings.TrimSpace(msg)
			if msg == "" {
				return
			}
			attrs := []logging.Attr{}
			if c != nil {
				if cl := c.Class(); cl != nil {
					attrs = append(attrs, logging.String("class", cl.String()))
				}
			}
			switch {
			case l <= astiav.LogLevelError:
				logger.Error(msg, logging.Args(attrs...)...)
			case l <= astiav.LogLevelWarning:
				logger.Warn(msg, logging.Args(attrs...)...)
			default:
				logger.Debug(msg, logging.Args(attrs...)...)
			}
		})
	})
}

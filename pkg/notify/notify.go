// Package notify carries the cache's one-way side channels: a context flag
// sink consumed by UI logic and a user-visible notification surface.
package notify

import (
	"fmt"
	"log/slog"
	"os"
)

// FlagHasMultipleOrganizations is published whenever organization state
// changes; true only when the user belongs to more than one organization.
const FlagHasMultipleOrganizations = "hasMultipleOrganizationOptions"

// FlagSink receives boolean context flags. Publishing is fire-and-forget;
// implementations must not block.
type FlagSink interface {
	PublishFlag(name string, value bool)
}

// Notifier surfaces a user-visible failure message with an implicit
// acknowledgement action.
type Notifier interface {
	Notify(message string)
}

// LogFlagSink records flag values through slog.
type LogFlagSink struct {
	Logger *slog.Logger
}

func NewLogFlagSink(logger *slog.Logger) *LogFlagSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogFlagSink{Logger: logger}
}

func (s *LogFlagSink) PublishFlag(name string, value bool) {
	s.Logger.Debug("publishing context flag", "flag", name, "value", value)
}

var _ FlagSink = (*LogFlagSink)(nil)

// StderrNotifier prints failure messages to stderr. The CLI uses it as the
// notification surface.
type StderrNotifier struct{}

func (StderrNotifier) Notify(message string) {
	fmt.Fprintln(os.Stderr, message)
}

var _ Notifier = (StderrNotifier{})

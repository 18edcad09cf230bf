package integrity

import "candidate-interview/internal/common/logger"

// LogNotifier writes candidate messages to the log.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.OrDefault(log)}
}

func (n *LogNotifier) Warn(message string) {
	n.logger.Warn(message, nil)
}

func (n *LogNotifier) Terminal(message string) {
	n.logger.Error(message, nil)
}

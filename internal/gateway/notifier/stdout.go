package notifier

import "balancer/internal/logger"

// Stdout is the fallback notifier used when no Telegram chat is configured.
// Reports still land in the log, just not on a phone.
type Stdout struct{}

func (Stdout) SendText(text string) error {
	logger.InfoBlock(text)
	return nil
}

package telegram

import (
	"context"
	"errors"
	"time"

	"course_expiry_notifier/internal/app"
	"course_expiry_notifier/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const helpText = `Available commands:
/stats - delivery log statistics
/run_check - run the expiration check now
/help - this message`

// StatsSource provides delivery log statistics.
type StatsSource interface {
	Stats(ctx context.Context) (*notification.Stats, error)
}

// RunTrigger starts an expiration run outside the schedule.
type RunTrigger interface {
	RunNow(ctx context.Context) (*app.RunSummary, error)
}

// RegisterAdminHandlers registers the operator commands. Only adminTelegramID may use them.
func RegisterAdminHandlers(
	ctx context.Context,
	b *telebot.Bot,
	stats StatsSource,
	trigger RunTrigger,
	adminTelegramID int64,
	baseLogger *logrus.Entry,
) {
	adminOnly := func(command string, next func(c telebot.Context, log *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			if c.Sender() == nil {
				return nil // channel posts carry no sender
			}
			handlerLogger := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			handlerLogger.Info("Command received")

			if c.Sender().ID != adminTelegramID {
				handlerLogger.Warn("Unauthorized access attempt")
				return c.Send("Error: you are not allowed to use this command.")
			}
			return next(c, handlerLogger)
		}
	}

	b.Handle("/start", adminOnly("/start", func(c telebot.Context, _ *logrus.Entry) error {
		return c.Send("Hello! I report course expiration runs.\n\n" + helpText)
	}))

	b.Handle("/help", adminOnly("/help", func(c telebot.Context, _ *logrus.Entry) error {
		return c.Send(helpText)
	}))

	b.Handle("/stats", adminOnly("/stats", func(c telebot.Context, log *logrus.Entry) error {
		s, err := stats.Stats(ctx)
		if err != nil {
			log.WithError(err).Error("Failed to load notification stats")
			return c.Send("Could not load statistics, please try again later.")
		}
		return c.Send(FormatStats(s))
	}))

	b.Handle("/run_check", adminOnly("/run_check", func(c telebot.Context, log *logrus.Entry) error {
		chat := c.Chat()
		go func() {
			summary, err := trigger.RunNow(ctx)
			var reply string
			switch {
			case errors.Is(err, app.ErrRunInProgress):
				reply = "An expiration run is already in progress."
			case err != nil:
				log.WithError(err).Error("Manual expiration run failed")
				reply = FormatRunFailure(time.Now(), err)
			default:
				reply = FormatRunSummary(time.Now(), summary)
			}
			if _, errSend := b.Send(chat, reply); errSend != nil {
				log.WithError(errSend).Error("Failed to send run result")
			}
		}()
		return c.Send("Expiration check started.")
	}))
}

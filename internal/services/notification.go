package services

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/trademantra/swingtrader-go/internal/config"
	"github.com/trademantra/swingtrader-go/internal/models"
)

// TelegramNotifier delivers trade alerts to a configured operator chat.
// Delivery is strictly fire-and-forget: every failure is logged and
// swallowed so a dead Telegram channel can never fail an admission or an
// execution. A notifier built without a token is a no-op.
type TelegramNotifier struct {
	bot     *bot.Bot
	chatID  int64
	printer *message.Printer
	logger  *logrus.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *logrus.Logger) *TelegramNotifier {
	n := &TelegramNotifier{
		chatID:  cfg.ChatID,
		printer: message.NewPrinter(language.MustParse("en-IN")),
		logger:  logger,
	}
	if cfg.BotToken != "" {
		b, err := bot.New(cfg.BotToken)
		if err != nil {
			logger.WithError(err).Warn("Telegram bot initialization failed, notifications disabled")
		} else {
			n.bot = b
		}
	}
	return n
}

func (n *TelegramNotifier) NotifySignal(ctx context.Context, sig *models.Signal) {
	msg := fmt.Sprintf("📈 *Signal placed: %s %s*\n", sig.Symbol, sig.Direction)
	msg += fmt.Sprintf("Entry: %s\n", n.rupees(sig.EntryPrice))
	msg += fmt.Sprintf("Stop: %s | Target: %s\n", n.rupees(sig.StopLoss), n.rupees(sig.TakeProfit))
	msg += fmt.Sprintf("Qty: %d | R:R %.2f | Confidence %.0f%%\n", sig.Quantity, sig.RiskReward, sig.Confidence)
	msg += fmt.Sprintf("Est. holding: %d days", sig.HoldingDaysEstimate)
	n.send(ctx, msg)
}

func (n *TelegramNotifier) NotifyPendingApproval(ctx context.Context, sig *models.Signal) {
	msg := fmt.Sprintf("⏳ *Approval required: %s %s*\n", sig.Symbol, sig.Direction)
	msg += fmt.Sprintf("Entry: %s | Notional: %s\n", n.rupees(sig.EntryPrice), n.rupees(sig.Notional()))
	msg += fmt.Sprintf("Signal ID: `%s`\n", sig.ID)
	msg += "Approve via the dashboard or the approval endpoint."
	n.send(ctx, msg)
}

func (n *TelegramNotifier) NotifyLargeOrder(ctx context.Context, sig *models.Signal) {
	msg := fmt.Sprintf("⚠️ *Large order: %s %s*\n", sig.Symbol, sig.Direction)
	msg += fmt.Sprintf("Notional %s exceeds the large-order threshold.", n.rupees(sig.Notional()))
	n.send(ctx, msg)
}

func (n *TelegramNotifier) NotifyExit(ctx context.Context, pos *models.PaperPosition) {
	emoji := "✅"
	if pos.PnL.IsNegative() {
		emoji = "🛑"
	}
	msg := fmt.Sprintf("%s *Position closed: %s %s*\n", emoji, pos.Symbol, pos.Direction)
	msg += fmt.Sprintf("Exit: %s (%s)\n", n.rupees(pos.ExitPrice.InexactFloat64()), pos.ExitReason)
	msg += fmt.Sprintf("P&L: %s", n.rupees(pos.PnL.InexactFloat64()))
	n.send(ctx, msg)
}

// rupees renders an amount with Indian digit grouping (1,00,000 style).
func (n *TelegramNotifier) rupees(amount float64) string {
	return n.printer.Sprintf("₹%.2f", amount)
}

func (n *TelegramNotifier) send(ctx context.Context, text string) {
	if n.bot == nil || n.chatID == 0 {
		return
	}
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: tgmodels.ParseModeMarkdown,
	})
	if err != nil {
		n.logger.WithError(err).Warn("Failed to deliver Telegram notification")
	}
}

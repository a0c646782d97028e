// Command setwebhook registers (or with -delete, removes) the bot's webhook
// out of band. Useful when the webhook URL changes without redeploying the
// bot, or to switch a deployment back to long polling.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/zayedali554/udaylive-bot/config"
	"github.com/zayedali554/udaylive-bot/telegram"
)

func main() {
	del := flag.Bool("delete", false, "delete the registered webhook instead of setting one")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if cfg.BotToken == "" {
		slog.Error("missing BOT_TOKEN")
		os.Exit(1)
	}

	tg := telegram.NewClient(cfg.BotAPIBase, cfg.BotToken)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if *del {
		if err := tg.DeleteWebhook(ctx); err != nil {
			slog.Error("webhook removal failed", slog.Any("err", err))
			os.Exit(1)
		}
		slog.Info("webhook removed")
		return
	}

	if cfg.WebhookURL == "" {
		slog.Error("missing WEBHOOK_URL")
		os.Exit(1)
	}
	if err := tg.SetWebhook(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
		slog.Error("webhook registration failed", slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("webhook registered", slog.String("url", cfg.WebhookURL))
}

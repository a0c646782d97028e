package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zayedali554/udaylive-bot/telegram"
	"github.com/zayedali554/udaylive-bot/telemetry"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

// HandleWebhook receives one Telegram update per request. Telegram redelivers
// on any non-2xx, so every accepted request answers 200 even when the payload
// turns out to be garbage; only an authentication failure is refused.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.secret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			slog.Warn("webhook auth failed", slog.String("remote_addr", r.RemoteAddr))
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		// Acknowledge anyway; a malformed body will not improve on retry.
		telemetry.LoggerWithCorr(r.Context()).Warn("webhook body decode failed", slog.Any("err", err))
		if telemetry.UpdatesDropped != nil {
			telemetry.UpdatesDropped.Inc()
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	h.handle(r.Context(), upd)
	w.WriteHeader(http.StatusOK)
}

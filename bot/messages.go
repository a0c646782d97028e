package bot

import (
	"fmt"

	"github.com/zayedali554/udaylive-bot/telegram"
)

// Operator-facing reply texts. Centralized so handlers and tests share one
// source of truth for wording.
const (
	msgWelcome = "👋 Welcome to UdayLive Admin Bot!\n\n" +
		"I help you manage your streaming platform remotely.\n\n" +
		"Use /help to see all available commands."

	msgHelp = "📋 Available Commands:\n\n" +
		"Public:\n" +
		"/start - Welcome message\n" +
		"/help - Show this help\n" +
		"/login - Authenticate as admin\n" +
		"/status - Check platform status\n" +
		"/get_url - Get current video URL\n" +
		"/get_stats - Get platform statistics\n\n" +
		"Admin only:\n" +
		"/disable_video - Disable video streaming\n" +
		"/enable_video - Enable video streaming\n" +
		"/change_url - Change video source URL\n" +
		"/toggle_chat - Toggle chat on/off\n" +
		"/clear_messages - Clear all chat messages\n" +
		"/logout - End admin session"

	msgUnknown = "❓ Unknown command. Use /help to see available commands."

	msgAuthRequired = "🔒 This command requires admin access. Use /login to authenticate."

	msgSessionExpired = "⚠️ Your admin session is no longer valid. Please /login again."

	msgSessionUnavailable = "⚠️ Could not verify your session right now. Please /login again."

	msgAlreadyLoggedIn = "✅ You are already logged in as admin."

	msgNotLoggedIn = "ℹ️ You are not logged in."

	msgEnterEmail = "📧 Please enter your admin email:"

	msgInvalidEmail = "❌ That doesn't look like an email address. Please enter your admin email:"

	msgEnterPassword = "🔑 Please enter your password:"

	msgEmptyPassword = "❌ Password cannot be empty. Please enter your password:"

	msgLoginUsage = "Usage: /login email password\n(or just /login to be prompted step by step)"

	msgLoggedOut = "👋 Logged out. Your admin session has ended."

	msgEnterURL = "🔗 Please send the new video URL (must start with http:// or https://):"

	msgInvalidURL = "❌ Invalid URL. It must start with http:// or https://. Please send the new video URL:"

	msgNoURL = "ℹ️ No video URL is currently set."

	msgVideoEnabled  = "✅ Video streaming has been ENABLED."
	msgVideoDisabled = "🔴 Video streaming has been DISABLED."

	msgChatEnabled  = "💬 Chat has been ENABLED."
	msgChatDisabled = "🔇 Chat has been DISABLED."

	msgMessagesCleared = "🗑️ All chat messages have been cleared."
)

func msgLoginSuccess(email string) string {
	return fmt.Sprintf("✅ Login successful! Welcome, %s.\n\nYou now have admin access. Use the menu below or /help.", email)
}

func msgLoginRejected(reason string) string {
	return fmt.Sprintf("❌ Login failed: %s", reason)
}

func msgTransient(what string) string {
	return fmt.Sprintf("⚠️ Something went wrong while handling %s. Please try again in a moment.", what)
}

func msgURLUpdated(url string) string {
	return fmt.Sprintf("✅ Video URL updated to:\n%s", url)
}

func msgStatus(video, chat *bool, url string) string {
	render := func(b *bool) string {
		switch {
		case b == nil:
			return "not set"
		case *b:
			return "🟢 enabled"
		default:
			return "🔴 disabled"
		}
	}
	urlState := "Not Set"
	if url != "" {
		urlState = "Set"
	}
	return fmt.Sprintf("📊 Platform Status:\n\nVideo: %s\nChat: %s\nVideo URL: %s",
		render(video), render(chat), urlState)
}

func msgStats(total, unique int) string {
	return fmt.Sprintf("📈 Platform Statistics:\n\n💬 Total messages: %d\n👥 Unique users: %d", total, unique)
}

func msgCurrentURL(url string) string {
	return fmt.Sprintf("🔗 Current video URL:\n%s", url)
}

// adminMenu is the quick-action keyboard attached after a successful login and
// after destructive actions, so the operator never has to retype commands.
func adminMenu() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{
			{
				{Text: "🔴 Disable Video", CallbackData: "disable_video"},
				{Text: "✅ Enable Video", CallbackData: "enable_video"},
			},
			{
				{Text: "💬 Toggle Chat", CallbackData: "toggle_chat"},
				{Text: "🗑️ Clear Messages", CallbackData: "clear_messages"},
			},
			{
				{Text: "📈 Get Stats", CallbackData: "get_stats"},
				{Text: "🔗 Change URL", CallbackData: "change_url"},
			},
		},
	}
}

// Package handler contains the Telegram command handlers. Each handler turns
// one user action into a ready-to-send Response; the bot layer owns sending.
package handler

import "github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/presenter"

// Response is a ready-to-send reply: plain text plus an optional keyboard.
type Response struct {
	Text     string
	Keyboard *presenter.InlineKeyboard
}

// TextResponse wraps plain text in a Response.
func TextResponse(text string) *Response {
	return &Response{Text: text}
}

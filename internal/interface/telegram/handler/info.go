package handler

import (
	"context"

	"github.com/mentor-hub/code-mentor-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════
// INFO HANDLER
// Handles /start, /help, /about and /menu. Static content only.
// ══════════════════════════════════════════════════════════════════════════

// InfoHandler handles the informational commands.
type InfoHandler struct {
	keyboards *presenter.KeyboardBuilder
}

// NewInfoHandler creates a new InfoHandler.
func NewInfoHandler(keyboards *presenter.KeyboardBuilder) *InfoHandler {
	return &InfoHandler{keyboards: keyboards}
}

// Start processes "/start".
func (h *InfoHandler) Start(ctx context.Context, firstName string) (*Response, error) {
	return &Response{
		Text:     presenter.Welcome(firstName),
		Keyboard: h.keyboards.MenuKeyboard(),
	}, nil
}

// Help processes "/help".
func (h *InfoHandler) Help(ctx context.Context) (*Response, error) {
	return TextResponse(presenter.Help), nil
}

// About processes "/about".
func (h *InfoHandler) About(ctx context.Context) (*Response, error) {
	return TextResponse(presenter.About), nil
}

// Menu processes "/menu".
func (h *InfoHandler) Menu(ctx context.Context) (*Response, error) {
	return &Response{
		Text:     presenter.MenuTitle,
		Keyboard: h.keyboards.MenuKeyboard(),
	}, nil
}

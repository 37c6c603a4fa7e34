// Package presenter formats domain data for Telegram display: message texts,
// inline keyboards and the fixed Spanish user-facing strings.
package presenter

// ══════════════════════════════════════════════════════════════════════════
// INLINE KEYBOARD TYPES
// Library-agnostic keyboard representation; the bot layer converts these to
// the wire format.
// ══════════════════════════════════════════════════════════════════════════

// InlineKeyboard represents an inline keyboard.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton represents a single inline button.
type InlineButton struct {
	Text         string
	CallbackData string
	URL          string
}

// NewInlineKeyboard creates a new empty inline keyboard.
func NewInlineKeyboard() *InlineKeyboard {
	return &InlineKeyboard{Rows: make([][]InlineButton, 0)}
}

// AddRow adds a row of buttons.
func (k *InlineKeyboard) AddRow(buttons ...InlineButton) *InlineKeyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// CallbackButton creates a callback button.
func CallbackButton(text, callbackData string) InlineButton {
	return InlineButton{Text: text, CallbackData: callbackData}
}

// ══════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// ══════════════════════════════════════════════════════════════════════════

// KeyboardBuilder builds the inline keyboards used by the handlers.
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// MenuKeyboard is the /menu keyboard: one button per frequent command.
func (b *KeyboardBuilder) MenuKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("📘 Siguiente módulo", "cmd:next"),
			CallbackButton("📋 Módulos", "cmd:modules"),
		).
		AddRow(
			CallbackButton("❓ Quiz", "cmd:quiz"),
			CallbackButton("📈 Progreso", "cmd:progress"),
		).
		AddRow(
			CallbackButton("⚠️ Errores comunes", "cmd:errors"),
			CallbackButton("🕘 Contexto", "cmd:context"),
		)
}

// QuizAnswerKeyboard renders one button per option so the user can answer a
// question with a tap instead of typing /answer N.
func (b *KeyboardBuilder) QuizAnswerKeyboard(optionCount int) *InlineKeyboard {
	kb := NewInlineKeyboard()
	row := make([]InlineButton, 0, optionCount)
	for i := 0; i < optionCount; i++ {
		row = append(row, CallbackButton(optionLabel(i), answerCallback(i)))
		if len(row) == 4 {
			kb.AddRow(row...)
			row = row[:0:0]
		}
	}
	if len(row) > 0 {
		kb.AddRow(row...)
	}
	return kb
}

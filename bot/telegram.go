package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/kmwangi/ethpesa/core/telegram/callbacks"
	tghelpers "github.com/kmwangi/ethpesa/core/telegram/helpers"
	"github.com/kmwangi/ethpesa/core/telegram/keyboard"
	"github.com/kmwangi/ethpesa/core/telegram/ui"
)

// CallbackAccountRefresh re-renders the account view in place.
const CallbackAccountRefresh = "acct_refresh"

// MenuKeyboard builds a reply keyboard mirroring the six menu options.
func MenuKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{"1", "2", "3"},
		[]string{"4", "5", "6"},
	)
}

// AccountMarkup attaches a refresh button to the account view. The payload
// carries how many ledger entries the refreshed view should show.
func AccountMarkup(limit int) *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🔄 Refresh", Unique: CallbackAccountRefresh, Data: strconv.Itoa(limit)},
	})
}

func teleReply(c tele.Context) ReplyFunc {
	return func(text string, extras ...interface{}) error {
		opts := &tele.SendOptions{}
		for _, extra := range extras {
			if rm, ok := extra.(*tele.ReplyMarkup); ok {
				opts.ReplyMarkup = rm
			}
		}
		if opts.ReplyMarkup == nil {
			return tghelpers.SendText(c, text)
		}
		return tghelpers.SendText(c, text, opts)
	}
}

// TeleHandler adapts the engine to a telebot text handler. It is registered
// both as the FSM handler for the deposit states and as the fallback for
// unmatched text, since the engine dispatches on session state itself.
func (e *Engine) TeleHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		return e.HandleText(ctx, c.Sender().ID, c.Text(), teleReply(c))
	}
}

// StartHandler resets the session and shows the menu with its keyboard.
func (e *Engine) StartHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		e.sessions.Clear(c.Sender().ID)
		return tghelpers.SendText(c, MenuText, &tele.SendOptions{ReplyMarkup: MenuKeyboard()})
	}
}

// AccountRefreshHandler serves the inline refresh button on the account view.
// The button payload selects the ledger view size; a missing or malformed
// payload falls back to the default.
func (e *Engine) AccountRefreshHandler() tele.HandlerFunc {
	return func(c tele.Context) error {
		limit, err := callbacks.PayloadInt(c)
		if err != nil {
			limit = defaultRecentTx
		}
		ctx := tghelpers.BuildContext(c)
		info, err := e.AccountInfo(ctx, c.Sender().ID, limit)
		if err != nil {
			return err
		}
		return tghelpers.EditOrSendMD(c, info, AccountMarkup(limit))
	}
}

// Fallbacks routes unmappable updates back into the menu.
type Fallbacks struct {
	Engine *Engine
}

var _ ui.FallbackProvider = Fallbacks{}

// UnknownText hands unmatched text to the engine's menu dispatch.
func (f Fallbacks) UnknownText() tele.HandlerFunc {
	return f.Engine.TeleHandler()
}

// UnknownDocument reminds the user that the bot is text-driven.
func (f Fallbacks) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, msgTextOnly)
	}
}

// UnknownCallback acknowledges stale or unsupported buttons.
func (f Fallbacks) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
	}
}

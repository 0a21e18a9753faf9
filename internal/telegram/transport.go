package telegram

import (
	"context"

	"github.com/ygalaxyy/bookmarkbot/internal/workflow"
)

// Transport presents a Client as the workflow's chat transport.
type Transport struct {
	client *Client
}

// NewTransport wraps client.
func NewTransport(client *Client) *Transport {
	return &Transport{client: client}
}

func (t *Transport) Send(ctx context.Context, chatID int64, text string, buttons [][]workflow.Button) (int, error) {
	var markup *InlineKeyboardMarkup
	if len(buttons) > 0 {
		markup = keyboard(buttons)
	}
	msg, err := t.client.SendMessage(ctx, chatID, text, markup)
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (t *Transport) Edit(ctx context.Context, chatID int64, messageID int, text string, buttons [][]workflow.Button) error {
	return t.client.EditMessageText(ctx, chatID, messageID, text, keyboard(buttons))
}

// keyboard converts workflow buttons into an inline keyboard. No buttons
// yields an empty keyboard so edits remove any previous one.
func keyboard(buttons [][]workflow.Button) *InlineKeyboardMarkup {
	rows := make([][]InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		r := make([]InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, InlineKeyboardButton{Text: b.Text, CallbackData: b.Token})
		}
		rows = append(rows, r)
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

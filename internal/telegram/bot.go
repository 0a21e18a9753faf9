package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Handler receives the updates of one chat, one at a time.
type Handler interface {
	HandleText(ctx context.Context, chatID int64, text string)
	HandleChoice(ctx context.Context, chatID int64, messageID int, token string)
}

// Options configures a Bot.
type Options struct {
	// PollTimeout is the getUpdates long-poll timeout in seconds.
	PollTimeout int
	// RetryDelay is the pause after a failed poll.
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Bot long-polls for updates and hands them to a Handler. Updates of the
// same chat are processed in arrival order; different chats run in parallel.
type Bot struct {
	client      *Client
	handler     Handler
	pollTimeout int
	retryDelay  time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	queues map[int64][]Update
	wg     sync.WaitGroup
}

// NewBot creates a dispatcher.
func NewBot(client *Client, handler Handler, opts Options) *Bot {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollTimeout < 0 {
		opts.PollTimeout = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 3 * time.Second
	}
	return &Bot{
		client:      client,
		handler:     handler,
		pollTimeout: opts.PollTimeout,
		retryDelay:  opts.RetryDelay,
		logger:      logger.With("system", "telegram"),
		queues:      make(map[int64][]Update),
	}
}

// Run drops pending updates and polls until ctx is cancelled. It waits for
// in-flight chats before returning.
func (b *Bot) Run(ctx context.Context) error {
	defer b.wg.Wait()

	if err := b.client.DeleteWebhook(ctx, true); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	b.logger.Info("polling for updates", "timeout", b.pollTimeout)

	var offset int64
	for {
		updates, err := b.client.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.retryDelay):
			}
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			b.dispatch(ctx, upd)
		}
	}
}

// dispatch queues upd behind earlier updates of the same chat.
func (b *Bot) dispatch(ctx context.Context, upd Update) {
	chatID, ok := chatOf(upd)
	if !ok {
		return
	}

	b.mu.Lock()
	queue, busy := b.queues[chatID]
	b.queues[chatID] = append(queue, upd)
	b.mu.Unlock()

	if busy {
		return
	}
	b.wg.Add(1)
	go b.drain(ctx, chatID)
}

func (b *Bot) drain(ctx context.Context, chatID int64) {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		queue := b.queues[chatID]
		if len(queue) == 0 {
			delete(b.queues, chatID)
			b.mu.Unlock()
			return
		}
		upd := queue[0]
		b.queues[chatID] = queue[1:]
		b.mu.Unlock()

		b.handle(ctx, chatID, upd)
	}
}

func (b *Bot) handle(ctx context.Context, chatID int64, upd Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("update handler panicked",
				"chat_id", chatID, "update_id", upd.UpdateID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		if err := b.client.AnswerCallbackQuery(ctx, cq.ID); err != nil {
			b.logger.Warn("answerCallbackQuery failed", "chat_id", chatID, "error", err)
		}
		b.handler.HandleChoice(ctx, chatID, cq.Message.MessageID, cq.Data)

	case upd.Message != nil:
		if upd.Message.From != nil && upd.Message.From.IsBot {
			return
		}
		text := upd.Message.Content()
		if text == "" {
			return
		}
		b.handler.HandleText(ctx, chatID, text)
	}
}

func chatOf(upd Update) (int64, bool) {
	switch {
	case upd.CallbackQuery != nil:
		if upd.CallbackQuery.Message == nil {
			return 0, false
		}
		return upd.CallbackQuery.Message.Chat.ID, true
	case upd.Message != nil:
		return upd.Message.Chat.ID, true
	default:
		return 0, false
	}
}

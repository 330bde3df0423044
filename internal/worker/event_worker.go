package worker

import (
	"context"
	"fmt"
	"log/slog"

	"caixa/internal/amqp"
	"caixa/internal/core"
	"caixa/internal/store"
)

// The purge scans this window, which covers every storable date.
var (
	purgeStart = core.Date("0000-01-01")
	purgeEnd   = core.Date("9999-12-31")
)

// EventWorker consumes account lifecycle events. Rejected and terminated
// accounts get their transactions purged, which matters for backends where
// removing the profile row does not cascade.
type EventWorker struct {
	transactions store.TransactionStore
}

func NewEventWorker(transactions store.TransactionStore) *EventWorker {
	return &EventWorker{transactions: transactions}
}

// Run consumes account events until the context is cancelled.
func (w *EventWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeAccountEvents(ctx, func(msg *amqp.AccountEventMessage) error {
		return w.HandleAccountEvent(ctx, msg)
	})
}

// HandleAccountEvent processes a single account lifecycle event.
func (w *EventWorker) HandleAccountEvent(ctx context.Context, msg *amqp.AccountEventMessage) error {
	slog.InfoContext(ctx, "Account event received",
		"action", msg.Action,
		"user_id", msg.UserID,
		"email", msg.Email)

	switch msg.Action {
	case amqp.ActionRejected, amqp.ActionTerminated:
		return w.purgeTransactions(ctx, msg.UserID)
	default:
		// Remaining actions only need the log line above.
		return nil
	}
}

// purgeTransactions removes every transaction belonging to the removed
// account. Missing rows are fine: the backend may have cascaded already.
func (w *EventWorker) purgeTransactions(ctx context.Context, userID string) error {
	txs, err := w.transactions.ListTransactions(ctx, userID, purgeStart, purgeEnd)
	if err != nil {
		return fmt.Errorf("list transactions for purge: %w", err)
	}
	if len(txs) == 0 {
		return nil
	}

	purged := 0
	for _, tx := range txs {
		if err := w.transactions.DeleteTransaction(ctx, userID, tx.ID); err != nil {
			slog.WarnContext(ctx, "Failed to purge transaction",
				"user_id", userID,
				"transaction_id", tx.ID,
				"error", err)
			continue
		}
		purged++
	}

	slog.InfoContext(ctx, "Purged transactions for removed account",
		"user_id", userID,
		"purged", purged,
		"total", len(txs))
	return nil
}

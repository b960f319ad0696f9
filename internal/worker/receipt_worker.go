package worker

// receipt_worker.go
// Processes receipt jobs from QueueReceipt: loads the order, renders the
// PDF ticket and, when a customer email is present, chains an email job.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tallypos/internal/infra"
	"tallypos/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const receiptMaxAttempts = 3

// ReceiptJobPayload is the job envelope sent to QueueReceipt.
type ReceiptJobPayload struct {
	OrderID string `json:"order_id"`
	Email   string `json:"email,omitempty"`
}

// ReceiptWorker renders PDF receipts for finalized orders.
type ReceiptWorker struct {
	orderRepo      repository.OrderRepository
	dispatcher     *Dispatcher
	rdb            *redis.Client
	pdfStoragePath string
}

// NewReceiptWorker wires all dependencies for the receipt worker.
func NewReceiptWorker(
	orderRepo repository.OrderRepository,
	dispatcher *Dispatcher,
	rdb *redis.Client,
	pdfStoragePath string,
) *ReceiptWorker {
	return &ReceiptWorker{
		orderRepo:      orderRepo,
		dispatcher:     dispatcher,
		rdb:            rdb,
		pdfStoragePath: pdfStoragePath,
	}
}

// Process handles a single receipt job:
//  1. Parse ReceiptJobPayload from the job envelope
//  2. Fetch the order (with items) from DB, retrying transient failures
//  3. Render the PDF ticket
//  4. Chain an email job when the payload carries a customer email
//
// Exhausted retries land the job in the DLQ.
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("receipt_worker: invalid payload")
		return
	}

	orderID, err := uuid.Parse(payload.OrderID)
	if err != nil {
		log.Error().Str("order_id", payload.OrderID).Msg("receipt_worker: invalid order_id")
		return
	}

	var pdfPath string
	jobErr := withRetry(ctx, receiptMaxAttempts, func(attempt int) error {
		order, err := w.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("order_id", payload.OrderID).
				Msg("receipt_worker: order lookup failed, retrying")
			return err
		}
		path, err := infra.GenerateReceiptPDF(order, w.pdfStoragePath)
		if err != nil {
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("order_id", payload.OrderID).
				Msg("receipt_worker: PDF generation failed, retrying")
			return err
		}
		pdfPath = path
		return nil
	})

	if jobErr != nil {
		log.Error().Err(jobErr).Str("order_id", payload.OrderID).Msg("receipt_worker: giving up after all retries")
		SendToDLQ(ctx, w.rdb, QueueReceipt, "receipt", raw, jobErr.Error(), receiptMaxAttempts)
		return
	}

	log.Info().Str("pdf", pdfPath).Str("order_id", payload.OrderID).Msg("receipt_worker: PDF generated")

	if payload.Email != "" {
		emailJob := EmailJobPayload{
			ToEmail: payload.Email,
			Subject: "Your TallyPOS receipt",
			Body:    "Attached is your purchase receipt. Thank you for shopping with us.",
			PDFPath: pdfPath,
		}
		if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
			log.Warn().Err(err).Str("email", payload.Email).Msg("receipt_worker: failed to enqueue email")
		} else {
			log.Info().Str("email", payload.Email).Msg("receipt_worker: email job enqueued")
		}
	}
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("retry budget exhausted")
	}
	return lastErr
}

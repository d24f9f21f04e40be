// Package checkout settles a cart and routes the resulting payload either
// straight to the remote billing API or into the offline queue. Both paths
// carry the identical payload, so connectivity is invisible to the caller
// beyond the Queued flag on the result.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sahajch/tillsync/internal/models"
	"github.com/sahajch/tillsync/internal/queue"
	"github.com/sahajch/tillsync/internal/remote"
	"github.com/sahajch/tillsync/internal/settle"
)

// connectivity is the slice of the network monitor the service needs.
type connectivity interface {
	Online() bool
}

// Request is one checkout attempt as it arrives from the counter.
type Request struct {
	Items           []models.CartItem    `json:"items"`
	Customer        *models.CustomerRef  `json:"customer,omitempty"`
	DiscountPercent float64              `json:"discountPercent"`
	PaymentMode     models.PaymentMode   `json:"paymentMode"`
	Split           *models.SplitPayment `json:"splitPayment,omitempty"`
}

// Result reports where the sale went.
type Result struct {
	// BillID is the remote bill identifier; empty when queued.
	BillID string `json:"billId,omitempty"`

	// Queued is true when the sale was made durable locally instead of
	// submitted, either because the device was offline or because the
	// direct submission could not reach the server.
	Queued bool `json:"queued"`

	// QueueID is the local queue id when Queued.
	QueueID int64 `json:"queueId,omitempty"`

	Payload *models.BillPayload `json:"payload"`
}

// Service coordinates settlement, direct submission and the offline queue.
type Service struct {
	monitor    connectivity
	remote     *remote.Client
	queue      *queue.Queue
	taxPercent float64
}

// New creates a checkout service. taxPercent is the fixed tax policy value.
func New(monitor connectivity, remoteClient *remote.Client, q *queue.Queue, taxPercent float64) *Service {
	return &Service{monitor: monitor, remote: remoteClient, queue: q, taxPercent: taxPercent}
}

// Checkout settles the cart and either submits the payload directly or
// enqueues it. Settlement validation errors come back before any
// persistence or network activity, so the UI can correct and retry.
//
// A server-side rejection on the direct path is surfaced to the caller: the
// server has seen and refused this sale, so replaying it verbatim would fail
// again. A transport failure routes the payload into the queue instead.
func (s *Service) Checkout(ctx context.Context, req Request, authToken string) (*Result, error) {
	payload, err := settle.Settle(req.Items, req.Customer, req.DiscountPercent, s.taxPercent, req.PaymentMode, req.Split)
	if err != nil {
		return nil, err
	}

	if s.monitor.Online() {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		billID, err := s.remote.SubmitBill(ctx, raw, authToken)
		if err == nil {
			slog.Info("sale submitted", "bill", billID, "total", payload.GrandTotal)
			return &Result{BillID: billID, Payload: payload}, nil
		}
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		slog.Warn("direct submission unreachable, queueing sale", "error", err)
	}

	id, err := s.queue.Enqueue(ctx, payload, authToken)
	if err != nil {
		// With local storage unavailable there is nowhere safe to put
		// the sale; fail cleanly rather than drop it.
		return nil, fmt.Errorf("offline checkout unavailable: %w", err)
	}
	return &Result{Queued: true, QueueID: id, Payload: payload}, nil
}

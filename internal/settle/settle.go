// Package settle computes the finalized invoice payload for a cart.
//
// Settlement is pure: no storage or network access happens here, which is
// what lets the same payload flow into either the direct-online submission
// path or the offline queue.
package settle

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sahajch/tillsync/internal/models"
)

// Tolerance is the absolute rounding slack allowed when validating that
// split payment amounts cover the grand total.
const Tolerance = 0.01

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidDiscount = errors.New("discount percent must be between 0 and 100")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrNegativeSplit   = errors.New("payment amounts cannot be negative")
	ErrNoPaymentMethod = errors.New("at least one payment method must be used")
)

// SplitMismatchError reports that the split amounts do not sum to the grand
// total. Remainder is signed: positive means underpaid, negative overpaid.
type SplitMismatchError struct {
	Remainder float64
}

func (e *SplitMismatchError) Error() string {
	if e.Remainder > 0 {
		return fmt.Sprintf("split payment short by %.2f", e.Remainder)
	}
	return fmt.Sprintf("split payment over by %.2f", -e.Remainder)
}

// Settle turns cart state into a validated invoice payload.
//
//	subtotal    = Σ(price × quantity)
//	discount    = subtotal × discountPercent / 100
//	tax         = (subtotal − discount) × taxPercent / 100
//	grand total = subtotal − discount + tax
//
// taxPercent is a fixed policy value, not user input. For split payments the
// three amounts must cover the grand total within Tolerance.
func Settle(items []models.CartItem, customer *models.CustomerRef, discountPercent, taxPercent float64, mode models.PaymentMode, split *models.SplitPayment) (*models.BillPayload, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	if discountPercent < 0 || discountPercent > 100 {
		return nil, ErrInvalidDiscount
	}

	var subtotal float64
	billItems := make([]models.BillItem, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidQuantity, item.Name)
		}
		lineTotal := item.Price * float64(item.Quantity)
		subtotal += lineTotal
		billItems = append(billItems, models.BillItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			LineTotal: lineTotal,
		})
	}

	discountAmount := subtotal * discountPercent / 100
	afterDiscount := subtotal - discountAmount
	taxAmount := afterDiscount * taxPercent / 100
	grandTotal := afterDiscount + taxAmount

	if mode == models.PaySplit {
		if split == nil {
			split = &models.SplitPayment{}
		}
		if err := validateSplit(*split, grandTotal); err != nil {
			return nil, err
		}
	} else {
		split = nil
	}

	return &models.BillPayload{
		Reference:       uuid.New().String(),
		Items:           billItems,
		Customer:        customer,
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		DiscountAmount:  discountAmount,
		TaxAmount:       taxAmount,
		GrandTotal:      grandTotal,
		PaymentMode:     mode,
		Split:           split,
		Timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func validateSplit(split models.SplitPayment, grandTotal float64) error {
	if split.Cash < 0 || split.UPI < 0 || split.Card < 0 {
		return ErrNegativeSplit
	}
	if split.Cash == 0 && split.UPI == 0 && split.Card == 0 {
		return ErrNoPaymentMethod
	}
	remainder := grandTotal - split.Total()
	if math.Abs(remainder) >= Tolerance {
		return &SplitMismatchError{Remainder: remainder}
	}
	return nil
}

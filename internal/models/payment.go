package models

// PaymentMode identifies how a sale was paid.
type PaymentMode string

const (
	PayCash  PaymentMode = "cash"
	PayUPI   PaymentMode = "upi"
	PayCard  PaymentMode = "card"
	PaySplit PaymentMode = "split"
)

// CartItem is one line of the cart as entered at the counter.
type CartItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// SplitPayment is a three-way cash/UPI/card breakdown of a single sale.
// The amounts must sum to the grand total within a 0.01 tolerance.
type SplitPayment struct {
	Cash float64 `json:"cash"`
	UPI  float64 `json:"upi"`
	Card float64 `json:"card"`
}

// Total returns the sum of the three split amounts.
func (s SplitPayment) Total() float64 {
	return s.Cash + s.UPI + s.Card
}

// CustomerRef identifies the customer on a bill. Optional at checkout.
type CustomerRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// BillItem is a cart line re-stamped at settlement time with the unit price
// and quantity in effect when the sale was made, decoupling the payload from
// any later price change.
type BillItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

// BillPayload is the finalized invoice produced by the settlement
// calculator. The same shape is submitted directly to the remote checkout
// endpoint when online and enqueued for replay when offline.
type BillPayload struct {
	// Reference is a client-generated identifier for this checkout.
	Reference string `json:"reference"`

	Items    []BillItem   `json:"items"`
	Customer *CustomerRef `json:"customer,omitempty"`

	Subtotal        float64 `json:"subtotal"`
	DiscountPercent float64 `json:"discountPercent"`
	DiscountAmount  float64 `json:"discountAmount"`
	TaxAmount       float64 `json:"taxAmount"`
	GrandTotal      float64 `json:"grandTotal"`

	PaymentMode PaymentMode   `json:"paymentMode"`
	Split       *SplitPayment `json:"splitPayment,omitempty"`

	// Timestamp is the settlement time in ISO-8601, generated client-side
	// so the server can deduplicate replays.
	Timestamp string `json:"timestamp"`
}

package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCheckoutReceipt is the task type emitted after a captured checkout.
	TaskCheckoutReceipt = "checkout:receipt"
)

// ReceiptLine is one purchased product in a receipt.
type ReceiptLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

// CheckoutReceiptPayload carries everything needed to render a receipt. It is the only
// record of a completed order.
type CheckoutReceiptPayload struct {
	OrderID    string        `json:"order_id"`
	CaptureID  string        `json:"capture_id"`
	Amount     string        `json:"amount"`
	Currency   string        `json:"currency"`
	Lines      []ReceiptLine `json:"lines"`
	CapturedAt time.Time     `json:"captured_at"`
}

// NewCheckoutReceiptTask constructs an Asynq task. The order id doubles as the task id
// so a repeated enqueue for the same order is rejected by the queue.
func NewCheckoutReceiptTask(payload CheckoutReceiptPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckoutReceipt, data, asynq.TaskID("receipt:"+payload.OrderID), asynq.MaxRetry(5)), nil
}

package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/storefront/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

var receiptTemplate = template.Must(template.New("receipt").Parse(`Order {{.OrderID}}
Capture {{.CaptureID}}
Paid {{.CapturedAt.Format "2006-01-02 15:04:05 MST"}}
{{range .Lines}}
{{.Quantity}} x {{.Name}} (#{{.ProductID}})  {{.Subtotal}}{{end}}

Total {{.Amount}} {{.Currency}}
`))

// ReceiptSink delivers a rendered receipt.
type ReceiptSink interface {
	Name() string
	Deliver(ctx context.Context, orderID, body string) error
}

// LogSink writes receipts to the logger.
type LogSink struct {
	Logger *slog.Logger
}

func (LogSink) Name() string { return "log" }

// Deliver logs the receipt body.
func (s LogSink) Deliver(_ context.Context, orderID, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("checkout receipt", slog.String("order_id", orderID), slog.String("body", body))
	return nil
}

// DirSink stores each receipt as <order id>.txt under Dir.
type DirSink struct {
	Dir string
}

func (DirSink) Name() string { return "dir" }

// Deliver writes the receipt file, replacing an earlier copy for the same order.
func (s DirSink) Deliver(_ context.Context, orderID, body string) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir, receiptFileName(orderID, ".txt")), []byte(body), 0o644)
}

// PDFRenderer converts a text receipt into a PDF document.
type PDFRenderer interface {
	RenderReceipt(ctx context.Context, orderID, text string) ([]byte, error)
}

// PDFSink stores each receipt as <order id>.pdf under Dir.
type PDFSink struct {
	Renderer PDFRenderer
	Dir      string
}

func (PDFSink) Name() string { return "pdf" }

// Deliver renders the receipt and writes the PDF file.
func (s PDFSink) Deliver(ctx context.Context, orderID, body string) error {
	pdf, err := s.Renderer.RenderReceipt(ctx, orderID, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.Dir, receiptFileName(orderID, ".pdf")), pdf, 0o644)
}

func receiptFileName(orderID, ext string) string {
	return strings.NewReplacer("/", "_", `\`, "_", "..", "_").Replace(orderID) + ext
}

// CheckoutReceiptJob renders and delivers receipts for captured checkouts.
type CheckoutReceiptJob struct {
	Sink    ReceiptSink
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCheckoutReceiptJob wires dependencies for the receipt handler.
func NewCheckoutReceiptJob(sink ReceiptSink, logger *slog.Logger, metrics *jobmetrics.Metrics) *CheckoutReceiptJob {
	return &CheckoutReceiptJob{Sink: sink, Logger: logger, Metrics: metrics}
}

// Handle processes TaskCheckoutReceipt tasks.
func (j *CheckoutReceiptJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sink == nil {
		return errors.New("checkout receipt: handler not configured")
	}
	var payload CheckoutReceiptPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("checkout receipt: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.OrderID == "" {
		return fmt.Errorf("checkout receipt: missing order id: %w", asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskCheckoutReceipt)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("order_id", payload.OrderID))
	body, err := RenderReceipt(payload)
	if err != nil {
		logger.Error("render receipt", slog.Any("error", err))
		return err
	}
	if err := j.Sink.Deliver(ctx, payload.OrderID, body); err != nil {
		logger.Error("deliver receipt", slog.String("sink", j.Sink.Name()), slog.Any("error", err))
		return err
	}
	j.metrics().ReceiptDelivered(j.Sink.Name())
	logger.Info("receipt delivered", slog.String("sink", j.Sink.Name()), slog.Int("lines", len(payload.Lines)))
	return nil
}

// RenderReceipt formats a receipt as plain text.
func RenderReceipt(payload CheckoutReceiptPayload) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, payload); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (j *CheckoutReceiptJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CheckoutReceiptJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

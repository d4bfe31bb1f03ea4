// Package report turns checkout receipts into PDF documents through a Gotenberg service.
package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

var receiptPage = template.Must(template.New("receipt").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Receipt {{.OrderID}}</title>
<style>body{font-family:sans-serif;margin:2rem}pre{font-size:12pt}</style></head>
<body><h1>Receipt {{.OrderID}}</h1><pre>{{.Body}}</pre></body></html>`))

// Client renders HTML to PDF with the Gotenberg chromium route.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a new client. A nil httpClient uses a 30 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// Ping checks if the remote Gotenberg service is available.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("report: gotenberg health status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts a complete HTML document into PDF bytes.
func (c *Client) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(html)); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("report: render failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// RenderReceipt wraps a plain text receipt in a printable page and converts it.
func (c *Client) RenderReceipt(ctx context.Context, orderID, text string) ([]byte, error) {
	var page bytes.Buffer
	if err := receiptPage.Execute(&page, struct{ OrderID, Body string }{orderID, text}); err != nil {
		return nil, fmt.Errorf("report: receipt page: %w", err)
	}
	return c.RenderHTML(ctx, page.String())
}

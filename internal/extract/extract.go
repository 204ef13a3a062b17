package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"github.com/invisifeed/invisifeed/internal/invoice"
)

const defaultTimeout = 60 * time.Second

var ErrNoDocument = errors.New("document ai returned no document")

type Config struct {
	ProjectID   string
	Location    string
	ProcessorID string
	// CredentialsFile is a service account key; application default
	// credentials are used when empty.
	CredentialsFile string
	Timeout         time.Duration
}

// DocumentAI reads customer metadata from uploaded invoices with a Document
// AI invoice processor.
type DocumentAI struct {
	client    *documentai.DocumentProcessorClient
	processor string
	timeout   time.Duration
}

func New(ctx context.Context, cfg Config) (*DocumentAI, error) {
	if cfg.ProjectID == "" || cfg.ProcessorID == "" {
		return nil, errors.New("document ai project and processor are required")
	}

	if cfg.Location == "" {
		cfg.Location = "us"
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := []option.ClientOption{
		option.WithEndpoint(fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)),
	}

	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating document ai client: %w", err)
	}

	return &DocumentAI{
		client:    client,
		processor: fmt.Sprintf("projects/%s/locations/%s/processors/%s", cfg.ProjectID, cfg.Location, cfg.ProcessorID),
		timeout:   cfg.Timeout,
	}, nil
}

func (d *DocumentAI) Close() error {
	return d.client.Close()
}

func (d *DocumentAI) Extract(ctx context.Context, pdf []byte) (*invoice.Extracted, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdf,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("processing document: %w", err)
	}

	if resp.GetDocument() == nil {
		return nil, ErrNoDocument
	}

	return fromDocument(resp.GetDocument()), nil
}

// fromDocument keeps the first value found for each field.
func fromDocument(doc *documentaipb.Document) *invoice.Extracted {
	out := &invoice.Extracted{}

	for _, e := range doc.GetEntities() {
		value := strings.TrimSpace(e.GetMentionText())

		switch e.GetType() {
		case "invoice_id", "invoice_number":
			setOnce(&out.InvoiceNumber, value)
		case "receiver_name", "customer_name", "buyer_name":
			setOnce(&out.CustomerName, value)
		case "receiver_email", "customer_email":
			setOnce(&out.CustomerEmail, strings.ToLower(value))
		case "receiver_address", "customer_address":
			setOnce(&out.CustomerAddress, strings.Join(strings.Fields(value), " "))
		case "invoice_date":
			if out.InvoiceDate == nil {
				if t, ok := date(e); ok {
					out.InvoiceDate = &t
				}
			}
		case "total_amount", "gross_amount":
			if out.Amount.IsZero() {
				if amt, ok := money(e); ok {
					out.Amount = amt
				}
			}
		}
	}

	return out
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

func date(e *documentaipb.Document_Entity) (time.Time, bool) {
	if d := e.GetNormalizedValue().GetDateValue(); d != nil && d.GetYear() > 0 {
		return time.Date(int(d.GetYear()), time.Month(d.GetMonth()), int(d.GetDay()), 0, 0, 0, 0, time.UTC), true
	}

	s := strings.TrimSpace(e.GetMentionText())
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

var currencyNoise = strings.NewReplacer("₹", "", "Rs.", "", "Rs", "", "INR", "", "$", "", "USD", "", ",", "", " ", "")

func money(e *documentaipb.Document_Entity) (decimal.Decimal, bool) {
	if m := e.GetNormalizedValue().GetMoneyValue(); m != nil {
		return decimal.New(m.GetUnits(), 0).Add(decimal.New(int64(m.GetNanos()), -9)), true
	}

	d, err := decimal.NewFromString(currencyNoise.Replace(e.GetMentionText()))
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}

// Nop is used when no processor is configured; uploads keep empty metadata.
type Nop struct{}

func (Nop) Extract(context.Context, []byte) (*invoice.Extracted, error) {
	return &invoice.Extracted{}, nil
}

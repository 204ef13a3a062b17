package extract

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gdate "google.golang.org/genproto/googleapis/type/date"
	gmoney "google.golang.org/genproto/googleapis/type/money"
)

func entity(typ, text string) *documentaipb.Document_Entity {
	return &documentaipb.Document_Entity{Type: typ, MentionText: text}
}

func TestFromDocument(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			entity("invoice_id", " INV-042 "),
			entity("receiver_name", "Bob Traders"),
			entity("customer_name", "Ignored Second Name"),
			entity("receiver_email", "Bob@Traders.TEST"),
			entity("receiver_address", "12 MG Road\nPune"),
			{
				Type:        "invoice_date",
				MentionText: "June 1st",
				NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
					StructuredValue: &documentaipb.Document_Entity_NormalizedValue_DateValue{
						DateValue: &gdate.Date{Year: 2026, Month: 6, Day: 1},
					},
				},
			},
			{
				Type:        "total_amount",
				MentionText: "₹1,234.50",
				NormalizedValue: &documentaipb.Document_Entity_NormalizedValue{
					StructuredValue: &documentaipb.Document_Entity_NormalizedValue_MoneyValue{
						MoneyValue: &gmoney.Money{CurrencyCode: "INR", Units: 1234, Nanos: 500000000},
					},
				},
			},
			entity("supplier_name", "Acme"),
		},
	}

	got := fromDocument(doc)

	assert.Equal(t, "INV-042", got.InvoiceNumber)
	assert.Equal(t, "Bob Traders", got.CustomerName)
	assert.Equal(t, "bob@traders.test", got.CustomerEmail)
	assert.Equal(t, "12 MG Road Pune", got.CustomerAddress)
	require.NotNil(t, got.InvoiceDate)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), *got.InvoiceDate)
	assert.Equal(t, "1234.5", got.Amount.String())
}

func TestFromDocument_MentionTextFallbacks(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			entity("invoice_date", "15/03/2026"),
			entity("total_amount", "Rs. 2,500.00"),
		},
	}

	got := fromDocument(doc)

	require.NotNil(t, got.InvoiceDate)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *got.InvoiceDate)
	assert.Equal(t, "2500", got.Amount.String())
}

func TestFromDocument_Unparseable(t *testing.T) {
	doc := &documentaipb.Document{
		Entities: []*documentaipb.Document_Entity{
			entity("invoice_date", "sometime soon"),
			entity("total_amount", "a lot"),
		},
	}

	got := fromDocument(doc)

	assert.Nil(t, got.InvoiceDate)
	assert.True(t, got.Amount.IsZero())
}

func TestNop(t *testing.T) {
	got, err := Nop{}.Extract(context.Background(), []byte("%PDF-"))
	require.NoError(t, err)
	assert.Empty(t, got.CustomerName)
}

func TestNew_RequiresProcessor(t *testing.T) {
	_, err := New(context.Background(), Config{ProjectID: "p"})
	assert.Error(t, err)
}

package gstin_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invisifeed/invisifeed/internal/gstin"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name    string
		number  string
		wantErr error
	}{
		{name: "Valid", number: "27AAPFU0939F1ZV"},
		{name: "ValidKarnataka", number: "29AAGCB7383J1Z4"},
		{name: "TooShort", number: "27AAPFU0939F1Z", wantErr: gstin.ErrLength},
		{name: "BadLayout", number: "2XAAPFU0939F1ZV", wantErr: gstin.ErrFormat},
		{name: "MissingZ", number: "27AAPFU0939F1YV", wantErr: gstin.ErrFormat},
		{name: "BadChecksum", number: "27AAPFU0939F1ZA", wantErr: gstin.ErrChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gstin.ValidateFormat(tt.number)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "27AAPFU0939F1ZV", gstin.Normalize("  27aapfu0939f1zv "))
}

func TestClient_Verify(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/27AAPFU0939F1ZV":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"flag":true,"data":{"tradeNam":"ACME STUDIO","lgnm":"ACME PVT LTD","sts":"Active","rgdt":"01/07/2017"}}`))
		case "/29AAGCB7383J1Z4":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"flag":true,"data":{"lgnm":"OLD CO","sts":"Cancelled"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	c := gstin.NewClient(ts.URL, "secret")

	t.Run("Active", func(t *testing.T) {
		res, err := c.Verify(context.Background(), "27aapfu0939f1zv")
		require.NoError(t, err)
		assert.True(t, res.Valid)
		assert.Equal(t, "ACME STUDIO", res.TradeName)
		assert.Equal(t, "ACME PVT LTD", res.TaxpayerInfo["legal_name"])
	})

	t.Run("Inactive", func(t *testing.T) {
		res, err := c.Verify(context.Background(), "29AAGCB7383J1Z4")
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, "GSTIN is not active", res.Message)
	})

	t.Run("MalformedNeverCallsServer", func(t *testing.T) {
		res, err := c.Verify(context.Background(), "27AAPFU0939F1ZA")
		require.NoError(t, err)
		assert.False(t, res.Valid)
		assert.Equal(t, gstin.ErrChecksum.Error(), res.Message)
	})
}

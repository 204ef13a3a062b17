// Package apiclient talks to the InvisiFeed HTTP API and turns error bodies
// back into the domain errors the client-side flows classify.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invisifeed/invisifeed/internal/business"
	"github.com/invisifeed/invisifeed/internal/coupon"
	"github.com/invisifeed/invisifeed/internal/gstin"
	"github.com/invisifeed/invisifeed/internal/http/account"
	couponhttp "github.com/invisifeed/invisifeed/internal/http/coupon"
	invoicehttp "github.com/invisifeed/invisifeed/internal/http/invoice"
	"github.com/invisifeed/invisifeed/internal/http/profile"
	"github.com/invisifeed/invisifeed/internal/invoice"
	"github.com/invisifeed/invisifeed/internal/metrics"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

// WithToken returns a copy that authenticates as the given session.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token

	return &cp
}

func (c *Client) Register(ctx context.Context, p business.RegisterParams) (*account.SessionResponse, error) {
	body := map[string]string{
		"username":      p.Username,
		"email":         p.Email,
		"password":      p.Password,
		"business_name": p.BusinessName,
	}

	var out account.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) Login(ctx context.Context, login, password string) (*account.SessionResponse, error) {
	var out account.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"login": login, "password": password}, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	var out account.AvailabilityResponse
	if err := c.do(ctx, http.MethodGet, "/auth/username-available?username="+url.QueryEscape(username), nil, &out); err != nil {
		return false, err
	}

	return out.Available, nil
}

func (c *Client) Profile(ctx context.Context) (*profile.Response, error) {
	return c.profileCall(ctx, http.MethodGet, "/profile/", nil)
}

func (c *Client) UpdateProfile(ctx context.Context, u business.ProfileUpdate) (*profile.Response, error) {
	body := map[string]*string{
		"business_name": u.BusinessName,
		"phone_number":  u.PhoneNumber,
		"country":       u.Country,
		"state":         u.State,
		"city":          u.City,
		"local_address": u.LocalAddress,
		"pincode":       u.Pincode,
	}

	for k, v := range body {
		if v == nil {
			delete(body, k)
		}
	}

	return c.profileCall(ctx, http.MethodPut, "/profile/", body)
}

func (c *Client) SkipProfile(ctx context.Context) (*profile.Response, error) {
	return c.profileCall(ctx, http.MethodPost, "/profile/skip", nil)
}

func (c *Client) SaveGSTIN(ctx context.Context, number string) (*profile.Response, error) {
	return c.profileCall(ctx, http.MethodPut, "/profile/gstin", map[string]string{"gstin_number": number})
}

func (c *Client) StartTrial(ctx context.Context) (*profile.Response, error) {
	return c.profileCall(ctx, http.MethodPost, "/profile/trial", nil)
}

func (c *Client) profileCall(ctx context.Context, method, path string, body any) (*profile.Response, error) {
	var out profile.Response
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) VerifyGSTIN(ctx context.Context, number string) (*gstin.Result, error) {
	var out gstin.Result
	if err := c.do(ctx, http.MethodPost, "/profile/gstin/verify", map[string]string{"gstin_number": number}, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// Upload sends a PDF with an optional coupon draft as multipart form data.
func (c *Client) Upload(ctx context.Context, filename string, data []byte, draft *coupon.Draft) (invoice.ProcessResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return invoice.ProcessResult{}, fmt.Errorf("building upload: %w", err)
	}

	if _, err := fw.Write(data); err != nil {
		return invoice.ProcessResult{}, fmt.Errorf("building upload: %w", err)
	}

	if draft != nil {
		for k, v := range map[string]string{
			"coupon_code":        draft.Code,
			"coupon_description": draft.Description,
			"coupon_expiry_days": draft.ExpiryDays,
		} {
			if err := mw.WriteField(k, v); err != nil {
				return invoice.ProcessResult{}, fmt.Errorf("building upload: %w", err)
			}
		}
	}

	if err := mw.Close(); err != nil {
		return invoice.ProcessResult{}, fmt.Errorf("building upload: %w", err)
	}

	var out invoicehttp.ProcessResponse
	if err := c.send(ctx, http.MethodPost, "/invoices/upload", &buf, mw.FormDataContentType(), &out); err != nil {
		return invoice.ProcessResult{}, err
	}

	return toResult(out), nil
}

func (c *Client) Create(ctx context.Context, p invoice.CreateParams, draft *coupon.Draft) (invoice.ProcessResult, error) {
	var out invoicehttp.ProcessResponse
	if err := c.do(ctx, http.MethodPost, "/invoices/", invoicehttp.NewCreateRequest(p, draft), &out); err != nil {
		return invoice.ProcessResult{}, err
	}

	return toResult(out), nil
}

func (c *Client) Sample(ctx context.Context) (invoice.ProcessResult, error) {
	var out invoicehttp.ProcessResponse
	if err := c.do(ctx, http.MethodPost, "/invoices/sample", nil, &out); err != nil {
		return invoice.ProcessResult{}, err
	}

	return toResult(out), nil
}

func (c *Client) Invoices(ctx context.Context, limit, offset int) ([]invoicehttp.Response, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var out []invoicehttp.Response
	if err := c.do(ctx, http.MethodGet, "/invoices/?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *Client) Email(ctx context.Context, number string) error {
	return c.do(ctx, http.MethodPost, "/invoices/"+url.PathEscape(number)+"/email", nil, nil)
}

func (c *Client) Coupons(ctx context.Context, page, size int) (*couponhttp.ListResponse, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))

	var out couponhttp.ListResponse
	if err := c.do(ctx, http.MethodGet, "/coupons/?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) MarkCouponUsed(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodPost, "/coupons/"+id.String()+"/mark-used", nil, nil)
}

func (c *Client) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/coupons/"+id.String(), nil, nil)
}

func (c *Client) Dashboard(ctx context.Context, sel metrics.Selection) (*metrics.Dashboard, error) {
	q := url.Values{}
	if sel.Year != 0 {
		q.Set("year", strconv.Itoa(sel.Year))
	} else if sel.View != "" {
		q.Set("view", string(sel.View))
	}

	var out metrics.Dashboard
	if err := c.do(ctx, http.MethodGet, "/dashboard/?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/account/reset", map[string]bool{"confirm": true}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var (
		body        io.Reader
		contentType string
	)

	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		body, contentType = bytes.NewReader(raw), "application/json"
	}

	return c.send(ctx, method, path, body, contentType, out)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

func toResult(r invoicehttp.ProcessResponse) invoice.ProcessResult {
	res := invoice.ProcessResult{
		InvoiceNumber:    r.InvoiceNumber,
		PDFURL:           r.PDFURL,
		FeedbackURL:      r.FeedbackURL,
		CustomerName:     r.CustomerName,
		CustomerEmail:    r.CustomerEmail,
		CustomerAmount:   r.CustomerAmount,
		DailyUploadCount: r.DailyUploadCount,
		DailyLimit:       r.DailyLimit,
	}

	if r.Coupon != nil {
		res.Coupon = &coupon.Coupon{
			InvoiceNumber: r.InvoiceNumber,
			Code:          r.Coupon.Code,
			Description:   r.Coupon.Description,
			ExpiryDays:    r.Coupon.ExpiryDays,
			ExpiryDate:    r.Coupon.ExpiryDate,
			IsUsed:        r.Coupon.IsUsed,
		}
	}

	return res
}

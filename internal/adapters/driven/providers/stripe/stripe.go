// Package stripe implements the Stripe billing adapter over the
// form-encoded v1 API with a restricted or secret key.
package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nexia-labs/nexia-core/internal/adapters/driven/providers"
	"github.com/nexia-labs/nexia-core/internal/core/domain"
	"github.com/nexia-labs/nexia-core/internal/core/ports/driven"
)

const apiBase = "https://api.stripe.com/v1"

var _ driven.Adapter = (*Adapter)(nil)

type Adapter struct {
	key    string
	client *http.Client

	baseURL string
}

func New(creds *domain.Credentials) *Adapter {
	return &Adapter{
		key:     creds.APIKey,
		client:  providers.NewHTTPClient(),
		baseURL: apiBase,
	}
}

func (a *Adapter) Provider() domain.Provider {
	return domain.ProviderStripe
}

func (a *Adapter) Authenticate(ctx context.Context) error {
	if !strings.HasPrefix(a.key, "sk_") && !strings.HasPrefix(a.key, "rk_") {
		return fmt.Errorf("%w: stripe keys start with sk_ or rk_", domain.ErrInvalidCredentials)
	}
	return nil
}

// TestConnection reads the account balance, a read-only call available
// to every key.
func (a *Adapter) TestConnection(ctx context.Context) (*domain.TestResult, error) {
	if err := a.Authenticate(ctx); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}

	var balance struct {
		Livemode bool `json:"livemode"`
	}
	if err := a.get(ctx, "/balance", nil, &balance); err != nil {
		return &domain.TestResult{Success: false, Message: err.Error()}, nil
	}

	mode := "test"
	if balance.Livemode {
		mode = "live"
	}
	return &domain.TestResult{Success: true, Message: "stripe key is valid (" + mode + " mode)"}, nil
}

func (a *Adapter) ExecuteAction(ctx context.Context, action string, params map[string]any) (any, error) {
	switch action {
	case "create_customer":
		return a.createCustomer(ctx, params)
	case "get_customer":
		return a.getCustomer(ctx, params)
	case "create_payment_link":
		return a.createPaymentLink(ctx, params)
	case "create_invoice":
		return a.createInvoice(ctx, params)
	case "list_payments":
		return a.listPayments(ctx, params)
	default:
		return nil, providers.UnknownAction(a.Provider(), action)
	}
}

type customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a *Adapter) createCustomer(ctx context.Context, params map[string]any) (any, error) {
	email, err := providers.StringParam(params, "email")
	if err != nil {
		return nil, err
	}

	form := url.Values{"email": {email}}
	if name := providers.OptionalStringParam(params, "name"); name != "" {
		form.Set("name", name)
	}

	var c customer
	if err := a.post(ctx, "/customers", form, &c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (a *Adapter) getCustomer(ctx context.Context, params map[string]any) (any, error) {
	id, err := providers.StringParam(params, "customer_id")
	if err != nil {
		return nil, err
	}

	var c customer
	if err := a.get(ctx, "/customers/"+url.PathEscape(id), nil, &c); err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

// createPaymentLink creates an ad-hoc price and a payment link for it
// in two calls; Stripe has no single-call variant for one-off amounts.
func (a *Adapter) createPaymentLink(ctx context.Context, params map[string]any) (any, error) {
	name, err := providers.StringParam(params, "product_name")
	if err != nil {
		return nil, err
	}
	amount, err := intParam(params, "amount_cents")
	if err != nil {
		return nil, err
	}
	currency := providers.OptionalStringParam(params, "currency")
	if currency == "" {
		currency = "usd"
	}

	var price struct {
		ID string `json:"id"`
	}
	priceForm := url.Values{
		"unit_amount":        {strconv.Itoa(amount)},
		"currency":           {currency},
		"product_data[name]": {name},
	}
	if err := a.post(ctx, "/prices", priceForm, &price); err != nil {
		return nil, fmt.Errorf("create price: %w", err)
	}

	var link struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	linkForm := url.Values{
		"line_items[0][price]":    {price.ID},
		"line_items[0][quantity]": {"1"},
	}
	if err := a.post(ctx, "/payment_links", linkForm, &link); err != nil {
		return nil, fmt.Errorf("create payment link: %w", err)
	}

	return map[string]any{"id": link.ID, "url": link.URL}, nil
}

func (a *Adapter) createInvoice(ctx context.Context, params map[string]any) (any, error) {
	customerID, err := providers.StringParam(params, "customer_id")
	if err != nil {
		return nil, err
	}
	amount, err := intParam(params, "amount_cents")
	if err != nil {
		return nil, err
	}
	description, err := providers.StringParam(params, "description")
	if err != nil {
		return nil, err
	}
	currency := providers.OptionalStringParam(params, "currency")
	if currency == "" {
		currency = "usd"
	}

	itemForm := url.Values{
		"customer":    {customerID},
		"amount":      {strconv.Itoa(amount)},
		"currency":    {currency},
		"description": {description},
	}
	if err := a.post(ctx, "/invoiceitems", itemForm, nil); err != nil {
		return nil, fmt.Errorf("create invoice item: %w", err)
	}

	var invoice struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		HostedInvoiceURL string `json:"hosted_invoice_url"`
	}
	invoiceForm := url.Values{"customer": {customerID}}
	if err := a.post(ctx, "/invoices", invoiceForm, &invoice); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	return map[string]any{
		"id":                 invoice.ID,
		"status":             invoice.Status,
		"hosted_invoice_url": invoice.HostedInvoiceURL,
	}, nil
}

func (a *Adapter) listPayments(ctx context.Context, params map[string]any) (any, error) {
	q := url.Values{"limit": {"25"}}
	if customerID := providers.OptionalStringParam(params, "customer_id"); customerID != "" {
		q.Set("customer", customerID)
	}

	var list struct {
		Data []struct {
			ID       string `json:"id"`
			Amount   int    `json:"amount"`
			Currency string `json:"currency"`
			Status   string `json:"status"`
			Created  int64  `json:"created"`
		} `json:"data"`
	}
	if err := a.get(ctx, "/payment_intents", q, &list); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return list.Data, nil
}

func (a *Adapter) get(ctx context.Context, path string, query url.Values, out any) error {
	callURL := a.baseURL + path
	if len(query) > 0 {
		callURL += "?" + query.Encode()
	}
	return providers.DoJSON(ctx, a.client, providers.Request{
		Method:  "GET",
		URL:     callURL,
		Headers: a.headers(),
	}, out)
}

func (a *Adapter) post(ctx context.Context, path string, form url.Values, out any) error {
	return providers.DoJSON(ctx, a.client, providers.Request{
		Method:   "POST",
		URL:      a.baseURL + path,
		Headers:  a.headers(),
		FormBody: form.Encode(),
	}, out)
}

func (a *Adapter) Capabilities() []string {
	return []string{"create_customer", "get_customer", "create_payment_link", "create_invoice", "list_payments"}
}

func (a *Adapter) ConfigSchema() driven.ConfigSchema {
	return driven.ConfigSchema{
		Auth: driven.AuthKindAPIKey,
		Fields: []driven.ConfigField{
			{Name: "api_key", Label: "Secret key", Secret: true, Required: true, Placeholder: "sk_live_..."},
		},
	}
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.key}
}

func intParam(params map[string]any, key string) (int, error) {
	switch v := params[key].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: parameter %q must be an integer", domain.ErrInvalidInput, key)
}

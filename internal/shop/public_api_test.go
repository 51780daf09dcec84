package shop_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"Ubermelon/internal/catalog"
	"Ubermelon/internal/customer"
	"Ubermelon/internal/session"
	"Ubermelon/internal/shop"
)

const (
	testSecret = "test-secret-test-secret-test-sec"

	melonsFile = `mst|Muskmelon|Cucumis melo|3.99|img/muskmelon.jpg|False
cas|Casaba|Cucumis melo inodorus|2.50|img/casaba.jpg|False
yw|Yellow Watermelon|Citrullus lanatus|6.25|img/yellow-watermelon.jpg|True
`
	customersFile = "Laura|Briggs|laurab@example.com|hunter2\n"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type cartBody struct {
	Lines []struct {
		Product   catalog.Product `json:"product"`
		Quantity  int             `json:"quantity"`
		LineTotal decimal.Decimal `json:"line_total"`
	} `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
	Currency     string          `json:"currency"`
	Count        int             `json:"count"`
	Flashes      []string        `json:"flashes"`
}

type melonsBody struct {
	Melons  []catalog.Product `json:"melons"`
	Flashes []string          `json:"flashes"`
}

type whoamiBody struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
}

func newServer(t *testing.T) *shop.Server {
	t.Helper()

	cat, err := catalog.Parse(strings.NewReader(melonsFile), "melons.txt", zap.NewNop())
	require.NoError(t, err)

	customers, err := customer.Parse(strings.NewReader(customersFile), "customers.txt", zap.NewNop(),
		customer.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)

	return &shop.Server{
		Log:       zap.NewNop(),
		Catalog:   cat,
		Customers: customers,
		Sessions: &session.Store{
			Codec: session.NewCodec(testSecret, time.Hour),
			Log:   zap.NewNop(),
		},
	}
}

func newShopTS(t *testing.T, deps shop.HTTPDeps) *httptest.Server {
	t.Helper()
	return serveShop(t, newServer(t), deps)
}

func serveShop(t *testing.T, s *shop.Server, deps shop.HTTPDeps) *httptest.Server {
	t.Helper()

	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	deps.Service = "shop"

	ts := httptest.NewServer(shop.NewHandler(s, deps))
	t.Cleanup(ts.Close)
	return ts
}

// newClient keeps cookies across requests like a browser.
func newClient(t *testing.T, followRedirects bool) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	tr := &http.Transport{}
	t.Cleanup(tr.CloseIdleConnections)

	c := &http.Client{Jar: jar, Transport: tr}
	if !followRedirects {
		c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	}
	return c
}

func do(t *testing.T, c *http.Client, method, target string, body any, out any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, target, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), "body=%s", raw)
	}
	return resp
}

func TestShop_AddToCartTwice(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	var cb cartBody
	resp := do(t, c, http.MethodPost, ts.URL+"/cart/items/mst", nil, &cb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/cart", resp.Request.URL.Path)
	assert.Equal(t, []string{"You've successfully added one Muskmelon to your cart."}, cb.Flashes)

	cb = cartBody{}
	do(t, c, http.MethodPost, ts.URL+"/cart/items/mst", nil, &cb)

	require.Len(t, cb.Lines, 1)
	assert.Equal(t, "mst", cb.Lines[0].Product.ID)
	assert.Equal(t, 2, cb.Lines[0].Quantity)
	assert.True(t, cb.Total.Equal(decimal.RequireFromString("7.98")), "total=%s", cb.Total)
	assert.Equal(t, "$7.98", cb.TotalDisplay)
	assert.Equal(t, "USD", cb.Currency)
	assert.Equal(t, 2, cb.Count)
	assert.Len(t, cb.Flashes, 1, "earlier flash was already shown")

	cb = cartBody{}
	do(t, c, http.MethodGet, ts.URL+"/cart", nil, &cb)
	assert.Empty(t, cb.Flashes, "flashes are one-shot")
	assert.Equal(t, 2, cb.Count)
}

func TestShop_FlashNamesJustAddedProduct(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	do(t, c, http.MethodPost, ts.URL+"/cart/items/yw", nil, nil)
	do(t, c, http.MethodPost, ts.URL+"/cart/items/mst", nil, nil)

	var cb cartBody
	do(t, c, http.MethodPost, ts.URL+"/cart/items/cas", nil, &cb)

	assert.Equal(t, []string{"You've successfully added one Casaba to your cart."}, cb.Flashes)
	require.Len(t, cb.Lines, 3)
	assert.Equal(t, []string{"mst", "cas", "yw"}, []string{
		cb.Lines[0].Product.ID, cb.Lines[1].Product.ID, cb.Lines[2].Product.ID,
	})
	assert.Equal(t, "$12.74", cb.TotalDisplay)
}

func TestShop_UnreadFlashesKeepCookieSmall(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, false)

	for range 60 {
		resp := do(t, c, http.MethodPost, ts.URL+"/cart/items/mst", nil, nil)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	}

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	cookies := c.Jar.Cookies(u)
	require.Len(t, cookies, 1)
	assert.Less(t, len(cookies[0].String()), 4096)

	var cb cartBody
	do(t, c, http.MethodGet, ts.URL+"/cart", nil, &cb)
	assert.Equal(t, 60, cb.Count)
	assert.Len(t, cb.Flashes, 5)
}

func TestShop_AddUnknownProduct(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, false)

	resp := do(t, c, http.MethodPost, ts.URL+"/cart/items/banana", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, resp.Cookies(), "session untouched")
}

func TestShop_RemoveFromCart(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	do(t, c, http.MethodPost, ts.URL+"/cart/items/mst", nil, nil)
	do(t, c, http.MethodPost, ts.URL+"/cart/items/mst", nil, nil)

	var cb cartBody
	do(t, c, http.MethodDelete, ts.URL+"/cart/items/mst", nil, &cb)
	require.Len(t, cb.Lines, 1)
	assert.Equal(t, 1, cb.Lines[0].Quantity)
	assert.Equal(t, []string{"Removed one Muskmelon from your cart."}, cb.Flashes)

	cb = cartBody{}
	do(t, c, http.MethodDelete, ts.URL+"/cart/items/mst", nil, &cb)
	assert.Empty(t, cb.Lines)
	assert.True(t, cb.Total.IsZero())

	cb = cartBody{}
	resp := do(t, c, http.MethodDelete, ts.URL+"/cart/items/mst", nil, &cb)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "removing an absent item is a no-op")
	assert.Empty(t, cb.Flashes)
}

func TestShop_EmptyCart(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	var cb cartBody
	resp := do(t, c, http.MethodGet, ts.URL+"/cart", nil, &cb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, cb.Lines)
	assert.Equal(t, "$0.00", cb.TotalDisplay)
	assert.Equal(t, 0, cb.Count)
}

func TestShop_Melons(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	var mb melonsBody
	resp := do(t, c, http.MethodGet, ts.URL+"/melons", nil, &mb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, mb.Melons, 3)
	assert.Equal(t, "mst", mb.Melons[0].ID)
	assert.NotNil(t, mb.Flashes)

	var p catalog.Product
	resp = do(t, c, http.MethodGet, ts.URL+"/melons/yw", nil, &p)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Yellow Watermelon", p.CommonName)
	assert.True(t, p.IsRare)

	resp = do(t, c, http.MethodGet, ts.URL+"/melons/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestShop_Login(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})

	t.Run("correct credentials: authenticated", func(t *testing.T) {
		c := newClient(t, true)

		var mb melonsBody
		resp := do(t, c, http.MethodPost, ts.URL+"/login", map[string]string{
			"email":    "laurab@example.com",
			"password": "hunter2",
		}, &mb)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "/melons", resp.Request.URL.Path)
		assert.Equal(t, []string{"Login successful!"}, mb.Flashes)

		var who whoamiBody
		do(t, c, http.MethodGet, ts.URL+"/whoami", nil, &who)
		assert.True(t, who.Authenticated)
		assert.Equal(t, "laurab@example.com", who.Email)
		assert.Equal(t, "Laura", who.FirstName)
	})

	t.Run("wrong password: anonymous", func(t *testing.T) {
		c := newClient(t, true)

		resp := do(t, c, http.MethodPost, ts.URL+"/login", map[string]string{
			"email":    "laurab@example.com",
			"password": "wrong",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		var who whoamiBody
		do(t, c, http.MethodGet, ts.URL+"/whoami", nil, &who)
		assert.False(t, who.Authenticated)
	})

	t.Run("unknown email: anonymous", func(t *testing.T) {
		c := newClient(t, true)

		resp := do(t, c, http.MethodPost, ts.URL+"/login", map[string]string{
			"email":    "nobody@example.com",
			"password": "hunter2",
		}, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing fields: bad request", func(t *testing.T) {
		c := newClient(t, true)

		resp := do(t, c, http.MethodPost, ts.URL+"/login", map[string]string{"email": "laurab@example.com"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestShop_LoginForm(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, false)

	form := url.Values{"email": {"laurab@example.com"}, "password": {"hunter2"}}
	resp, err := c.PostForm(ts.URL+"/login", form)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/melons", resp.Header.Get("Location"))
}

func TestShop_LoginRateLimited(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, false)

	creds := map[string]string{"email": "laurab@example.com", "password": "wrong"}
	for range 5 {
		resp := do(t, c, http.MethodPost, ts.URL+"/login", creds, nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := do(t, c, http.MethodPost, ts.URL+"/login", creds, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestShop_LogoutIsIdempotent(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	var mb melonsBody
	resp := do(t, c, http.MethodPost, ts.URL+"/logout", nil, &mb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"You are now logged out."}, mb.Flashes)

	do(t, c, http.MethodPost, ts.URL+"/login", map[string]string{
		"email":    "laurab@example.com",
		"password": "hunter2",
	}, nil)
	do(t, c, http.MethodPost, ts.URL+"/cart/items/cas", nil, nil)
	do(t, c, http.MethodPost, ts.URL+"/logout", nil, nil)

	var who whoamiBody
	do(t, c, http.MethodGet, ts.URL+"/whoami", nil, &who)
	assert.False(t, who.Authenticated)

	var cb cartBody
	do(t, c, http.MethodGet, ts.URL+"/cart", nil, &cb)
	assert.Equal(t, 1, cb.Count, "logout keeps the cart")
}

func TestShop_Checkout(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	var mb melonsBody
	resp := do(t, c, http.MethodPost, ts.URL+"/checkout", nil, &mb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/melons", resp.Request.URL.Path)
	assert.Equal(t, []string{"Sorry! Checkout will be implemented in a future version."}, mb.Flashes)
}

func TestShop_EndSessionDropsCart(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	do(t, c, http.MethodPost, ts.URL+"/cart/items/mst", nil, nil)

	resp := do(t, c, http.MethodDelete, ts.URL+"/session", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var cb cartBody
	do(t, c, http.MethodGet, ts.URL+"/cart", nil, &cb)
	assert.Empty(t, cb.Lines)
}

func TestShop_TamperedCookieIsAnonymous(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, true)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	c.Jar.SetCookies(u, []*http.Cookie{{Name: session.DefaultCookieName, Value: "not-a-token", Path: "/"}})

	var cb cartBody
	resp := do(t, c, http.MethodGet, ts.URL+"/cart", nil, &cb)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, cb.Lines)
}

func TestShop_Probes(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{})
	c := newClient(t, false)

	assert.Equal(t, http.StatusOK, do(t, c, http.MethodGet, ts.URL+"/healthz", nil, nil).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, c, http.MethodGet, ts.URL+"/readyz", nil, nil).StatusCode)
}

func TestShop_ReadyzEmptyStores(t *testing.T) {
	emptyCatalog, err := catalog.Parse(strings.NewReader(""), "melons.txt", zap.NewNop())
	require.NoError(t, err)
	noCustomers, err := customer.Parse(strings.NewReader("\n"), "customers.txt", zap.NewNop())
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(s *shop.Server)
		wantMsg string
	}{
		{name: "empty catalog", mutate: func(s *shop.Server) { s.Catalog = emptyCatalog }, wantMsg: "catalog not ready"},
		{name: "nil customers", mutate: func(s *shop.Server) { s.Customers = nil }, wantMsg: "customers not ready"},
		{name: "empty customers", mutate: func(s *shop.Server) { s.Customers = noCustomers }, wantMsg: "customers not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(t)
			tt.mutate(s)
			ts := serveShop(t, s, shop.HTTPDeps{})

			var body struct {
				Error string `json:"error"`
			}
			resp := do(t, newClient(t, false), http.MethodGet, ts.URL+"/readyz", nil, &body)
			assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestShop_Metrics(t *testing.T) {
	ts := newShopTS(t, shop.HTTPDeps{
		Registry:       prometheus.NewRegistry(),
		MetricsEnabled: true,
		MetricsToken:   "scrape",
	})
	c := newClient(t, true)

	do(t, c, http.MethodPost, ts.URL+"/cart/items/mst", nil, nil)

	resp := do(t, c, http.MethodGet, ts.URL+"/metrics", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/metrics", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer scrape")
	resp, err = c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `shop_cart_adds_total{product_id="mst"} 1`)
	assert.Contains(t, string(raw), `http_requests_total{method="POST",path="/cart/items/{id}",service="shop",status="303"} 1`)
}

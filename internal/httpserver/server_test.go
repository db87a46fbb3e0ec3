package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Skotchmaster/shopeasy/internal/admin"
	"github.com/Skotchmaster/shopeasy/internal/apiclient"
	"github.com/Skotchmaster/shopeasy/internal/cart"
	"github.com/Skotchmaster/shopeasy/internal/catalog"
	"github.com/Skotchmaster/shopeasy/internal/checkout"
	"github.com/Skotchmaster/shopeasy/internal/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendCall struct {
	Method string
	Path   string
	Auth   string
	Body   string
	CT     string
}

// fakeBackend imitates the REST API the storefront talks to.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []backendCall
	products string
	cart     string
	failCart bool
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, backendCall{r.Method, r.URL.Path, r.Header.Get("Authorization"), string(body), r.Header.Get("Content-Type")})
	products, remoteCart, failCart := f.products, f.cart, f.failCart
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/api/produtos/" && r.Method == http.MethodGet:
		_, _ = io.WriteString(w, products)
	case r.URL.Path == "/api/token/":
		var creds map[string]string
		_ = json.Unmarshal(body, &creds)
		if creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"access":"acc","refresh":"ref"}`)
	case r.URL.Path == "/api/carrinhos/adicionar-item/", r.URL.Path == "/api/carrinhos/remover-item/":
		if failCart {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/api/carrinhos/meu-carrinho/":
		_, _ = io.WriteString(w, remoteCart)
	case r.URL.Path == "/api/pedidos/":
		w.WriteHeader(http.StatusCreated)
	case strings.HasPrefix(r.URL.Path, "/api/produtos/"):
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeBackend) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeBackend) last(method, path string) (backendCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Method == method && f.calls[i].Path == path {
			return f.calls[i], true
		}
	}
	return backendCall{}, false
}

type harness struct {
	e       *echo.Echo
	backend *fakeBackend
	deps    *Deps
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fb := &fakeBackend{
		products: `{"results":[{"id":1,"nome":"Shirt","preco":"10.00","descricao":"cotton shirt","estoque":5},{"id":2,"nome":"Mug","preco":"5.00","estoque":2}]}`,
		cart:     `{"id":1,"itens":[]}`,
	}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	r, err := NewRenderer()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = r
	d := &Deps{
		API:       apiclient.NewClient(srv.URL+"/api", time.Second),
		Sessions:  session.NewManager(session.NewMemoryBackend(), false, time.Hour),
		Catalog:   catalog.NewService(0),
		Carts:     cart.NewRegistry(time.Hour),
		Forms:     admin.NewRegistry(time.Hour),
		Checkouts: checkout.NewRegistry(time.Hour),
		Flashes:   NewFlashStore(time.Hour),
	}
	Register(e, d)
	return &harness{e: e, backend: fb, deps: d}
}

// browser keeps cookies between requests.
type browser struct {
	h       *harness
	cookies map[string]*http.Cookie
}

func (h *harness) browser() *browser {
	return &browser{h: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range b.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	b.h.e.ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(b.cookies, ck.Name)
			continue
		}
		b.cookies[ck.Name] = ck
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return b.send(req)
}

func (b *browser) login(t *testing.T) {
	t.Helper()
	rec := b.post("/login", url.Values{"username": {"ana"}, "password": {"secret"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	b := h.browser()
	assert.Equal(t, http.StatusOK, b.get("/health/live").Code)
	assert.Equal(t, http.StatusOK, b.get("/health/ready").Code)
}

func TestHome_RendersCatalogAndSearch(t *testing.T) {
	h := newHarness(t)
	b := h.browser()

	rec := b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Shirt")
	assert.Contains(t, body, "R$ 10.00")
	assert.Contains(t, body, "Mug")
	assert.Contains(t, b.cookies, session.CookieSID)

	rec = b.get("/?q=cotton")
	assert.Contains(t, rec.Body.String(), "Shirt")
	assert.NotContains(t, rec.Body.String(), "Mug")
}

func TestCart_RequiresLogin(t *testing.T) {
	h := newHarness(t)
	b := h.browser()

	rec := b.post("/cart/add/1", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, h.backend.count(http.MethodPost, "/api/carrinhos/adicionar-item/"))

	page := b.get("/login")
	assert.Contains(t, page.Body.String(), MsgLoginRequired)
}

func TestLogin_BadPassword(t *testing.T) {
	h := newHarness(t)
	b := h.browser()

	rec := b.post("/login", url.Values{"username": {"ana"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password.")
}

func TestCartFlow_AddMergeAndTotal(t *testing.T) {
	h := newHarness(t)
	b := h.browser()
	b.login(t)

	for _, p := range []string{"/cart/add/1", "/cart/add/1", "/cart/add/2"} {
		rec := b.post(p, nil)
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}

	call, ok := h.backend.last(http.MethodPost, "/api/carrinhos/adicionar-item/")
	require.True(t, ok)
	assert.Equal(t, "Bearer acc", call.Auth)
	assert.JSONEq(t, `{"produto":2,"quantidade":1}`, call.Body)

	body := b.get("/").Body.String()
	assert.Contains(t, body, "Total: R$ 25.00")
	assert.Contains(t, body, `<span class="badge">3</span>`)

	require.Equal(t, http.StatusSeeOther, b.post("/cart/remove/1", nil).Code)
	call, ok = h.backend.last(http.MethodDelete, "/api/carrinhos/remover-item/")
	require.True(t, ok)
	assert.JSONEq(t, `{"produto":1,"quantidade":2}`, call.Body)

	body = b.get("/").Body.String()
	assert.Contains(t, body, "Total: R$ 5.00")
}

func TestCartFlow_RemoteFailureShownOnLine(t *testing.T) {
	h := newHarness(t)
	b := h.browser()
	b.login(t)
	require.Equal(t, http.StatusSeeOther, b.post("/cart/add/1", nil).Code)

	h.backend.mu.Lock()
	h.backend.failCart = true
	h.backend.mu.Unlock()

	require.Equal(t, http.StatusSeeOther, b.post("/cart/increase/1", nil).Code)
	body := b.get("/").Body.String()
	assert.Contains(t, body, cart.FailureMessage)
	assert.Contains(t, body, "Total: R$ 10.00")
}

func TestCheckout_ConfirmAndResync(t *testing.T) {
	h := newHarness(t)
	b := h.browser()
	b.login(t)
	require.Equal(t, http.StatusSeeOther, b.post("/cart/add/1", nil).Code)

	rec := b.post("/cart/checkout", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/checkout", rec.Header().Get("Location"))

	page := b.get("/checkout")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Quantity: 1")
	assert.Contains(t, page.Body.String(), "Total: R$ 10.00")

	rec = b.post("/checkout/confirm", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	call, ok := h.backend.last(http.MethodPost, "/api/pedidos/")
	require.True(t, ok)
	assert.JSONEq(t, `{}`, call.Body)

	home := b.get("/").Body.String()
	assert.Contains(t, home, checkout.MsgConfirmed)
	assert.NotContains(t, home, `class="badge"`)
}

func TestCheckout_EmptyMakesNoOrder(t *testing.T) {
	h := newHarness(t)
	b := h.browser()
	b.login(t)

	rec := b.post("/checkout/confirm", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/checkout", rec.Header().Get("Location"))
	assert.Zero(t, h.backend.count(http.MethodPost, "/api/pedidos/"))
	assert.Contains(t, b.get("/checkout").Body.String(), checkout.MsgEmpty)
}

func TestAdmin_DeleteNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	b := h.browser()
	b.login(t)

	require.Equal(t, http.StatusSeeOther, b.post("/admin/produtos/2/delete", nil).Code)
	assert.Zero(t, h.backend.count(http.MethodDelete, "/api/produtos/2/"))
	assert.Contains(t, b.get("/admin/produtos").Body.String(), "Yes, delete")

	require.Equal(t, http.StatusSeeOther, b.post("/admin/produtos/2/delete", url.Values{"confirm": {"true"}}).Code)
	assert.Equal(t, 1, h.backend.count(http.MethodDelete, "/api/produtos/2/"))
	assert.Contains(t, b.get("/admin/produtos").Body.String(), admin.MsgDeleted)
}

func TestAdmin_SubmitValidationAndMultipart(t *testing.T) {
	h := newHarness(t)
	b := h.browser()
	b.login(t)

	rec := b.post("/admin/produtos", url.Values{"nome": {"Pen"}, "preco": {"0"}, "estoque": {"1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Zero(t, h.backend.count(http.MethodPost, "/api/produtos/"))
	assert.Contains(t, b.get("/admin/produtos").Body.String(), "Fill in name")

	require.Equal(t, http.StatusSeeOther, b.get("/admin/produtos/1/edit").Code)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("nome", "Shirt v2")
	_ = mw.WriteField("preco", "12.50")
	_ = mw.WriteField("estoque", "4")
	fw, err := mw.CreateFormFile("imagem", "shirt.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/produtos", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec = b.send(req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	call, ok := h.backend.last(http.MethodPut, "/api/produtos/1/")
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(call.CT, "multipart/form-data"))
	assert.Contains(t, call.Body, "png-bytes")
	assert.Contains(t, b.get("/admin/produtos").Body.String(), admin.MsgUpdated)
}

func TestRegister_MismatchRendersError(t *testing.T) {
	h := newHarness(t)
	b := h.browser()

	rec := b.post("/register", url.Values{"username": {"ana"}, "email": {"a@b.c"}, "password": {"x"}, "confirm_password": {"y"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match.")
	assert.Zero(t, h.backend.count(http.MethodPost, "/api/register/"))
}

func TestLogout_ClearsSession(t *testing.T) {
	h := newHarness(t)
	b := h.browser()
	b.login(t)

	rec := b.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = b.post("/cart/add/1", nil)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

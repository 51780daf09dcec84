package shop

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"Ubermelon/internal/auth"
	"Ubermelon/internal/cart"
	"Ubermelon/internal/catalog"
	"Ubermelon/internal/customer"
	"Ubermelon/internal/money"
	"Ubermelon/internal/session"
	"Ubermelon/pkg/kit"
)

const maxBodyBytes = 1 << 20

const (
	msgLoggedIn  = "Login successful!"
	msgLoggedOut = "You are now logged out."
	msgCheckout  = "Sorry! Checkout will be implemented in a future version."
	msgAdded     = "You've successfully added one %s to your cart."
	msgRemoved   = "Removed one %s from your cart."
)

type Server struct {
	Log       *zap.Logger
	Catalog   *catalog.Store
	Customers *customer.Store
	Sessions  *session.Store

	metrics *ShopMetrics
}

type melonsResp struct {
	Melons  []catalog.Product `json:"melons"`
	Flashes []string          `json:"flashes"`
}

func (s *Server) listMelons(w http.ResponseWriter, r *http.Request) {
	sess, flashes := sessionFromContext(r.Context()).TakeFlashes()
	if len(flashes) > 0 && !s.commit(w, r, sess) {
		return
	}
	kit.WriteJSON(w, http.StatusOK, melonsResp{Melons: s.Catalog.All(), Flashes: flashes})
}

func (s *Server) getMelon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.Catalog.Get(id)
	if err != nil {
		writeNotFound(w, r, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

type cartResp struct {
	Lines        []cart.Line     `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	TotalDisplay string          `json:"total_display"`
	Currency     string          `json:"currency"`
	Count        int             `json:"count"`
	Flashes      []string        `json:"flashes"`
}

func (s *Server) showCart(w http.ResponseWriter, r *http.Request) {
	sess, flashes := sessionFromContext(r.Context()).TakeFlashes()
	if len(flashes) > 0 && !s.commit(w, r, sess) {
		return
	}

	v := sess.Cart.View(s.Catalog)
	kit.WriteJSON(w, http.StatusOK, cartResp{
		Lines:        v.Lines,
		Total:        v.Total,
		TotalDisplay: money.Format(v.Total),
		Currency:     money.Currency.String(),
		Count:        sess.Cart.Count(),
		Flashes:      flashes,
	})
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := sessionFromContext(r.Context())

	updated, err := sess.Cart.Add(s.Catalog, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeNotFound(w, r, id)
		return
	}
	if err != nil {
		s.Log.Error("add to cart failed", zap.Error(err), zap.String("product_id", id))
		writeServerError(w, r)
		return
	}

	p, err := s.Catalog.Get(id)
	if err != nil {
		writeNotFound(w, r, id)
		return
	}

	sess.Cart = updated
	sess = sess.WithFlash(fmt.Sprintf(msgAdded, p.CommonName))
	if !s.commit(w, r, sess) {
		return
	}

	s.metrics.cartAdd(id)
	kit.SeeOther(w, r, "/cart")
}

func (s *Server) removeFromCart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := sessionFromContext(r.Context())

	if sess.Cart.Quantity(id) > 0 {
		sess.Cart = sess.Cart.Remove(id)
		if p, err := s.Catalog.Get(id); err == nil {
			sess = sess.WithFlash(fmt.Sprintf(msgRemoved, p.CommonName))
		}
		if !s.commit(w, r, sess) {
			return
		}
	}

	kit.SeeOther(w, r, "/cart")
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	req, err := decodeLogin(w, r)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad request", map[string]any{"cause": err.Error()})
		return
	}
	if req.Email == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", nil)
		return
	}

	st, err := auth.Login(s.Customers, req.Email, req.Password)
	if errors.Is(err, customer.ErrInvalidCredentials) {
		s.metrics.login(loginFailed)
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	if err != nil {
		s.Log.Error("login failed", zap.Error(err))
		writeServerError(w, r)
		return
	}

	sess := sessionFromContext(r.Context())
	sess.Auth = st
	sess = sess.WithFlash(msgLoggedIn)
	if !s.commit(w, r, sess) {
		return
	}

	s.metrics.login(loginOK)
	kit.SeeOther(w, r, "/melons")
}

// decodeLogin accepts a JSON body or a classic HTML form post.
func decodeLogin(w http.ResponseWriter, r *http.Request) (loginReq, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req loginReq
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return loginReq{}, err
		}
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
	} else {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return loginReq{}, err
		}
	}

	req.Email = strings.TrimSpace(req.Email)
	return req, nil
}

type whoamiResp struct {
	Authenticated bool   `json:"authenticated"`
	Email         string `json:"email,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
}

func (s *Server) whoami(w http.ResponseWriter, r *http.Request) {
	st := sessionFromContext(r.Context()).Auth
	if !st.Authenticated() {
		kit.WriteJSON(w, http.StatusOK, whoamiResp{})
		return
	}

	resp := whoamiResp{Authenticated: true, Email: st.Email}
	if c, err := s.Customers.GetByEmail(st.Email); err == nil {
		resp.FirstName, resp.LastName = c.FirstName, c.LastName
	}
	kit.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	sess.Auth = auth.Logout()
	sess = sess.WithFlash(msgLoggedOut)
	if !s.commit(w, r, sess) {
		return
	}
	kit.SeeOther(w, r, "/melons")
}

// endSession drops the whole session, cart included.
func (s *Server) endSession(w http.ResponseWriter, _ *http.Request) {
	s.Sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// checkout is a placeholder until payment processing exists.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context()).WithFlash(msgCheckout)
	if !s.commit(w, r, sess) {
		return
	}
	kit.SeeOther(w, r, "/melons")
}

func writeNotFound(w http.ResponseWriter, r *http.Request, id string) {
	kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
}

func writeServerError(w http.ResponseWriter, r *http.Request) {
	kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
}

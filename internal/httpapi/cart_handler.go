package httpapi

import (
	"net/http"
	"time"

	"getir-be/internal/apperr"
	"getir-be/internal/cart"
	"getir-be/internal/utils"

	"github.com/google/uuid"
)

const cartSessionCookie = "cart_session"

// cartKey picks the cart for the request: the user's cart when logged in,
// otherwise the guest cart named by the cart_session cookie. When create is
// set and the guest has no cookie yet, one is issued.
func (h *Handler) cartKey(w http.ResponseWriter, r *http.Request, create bool) string {
	if id, ok := utils.GetUserIDFromContext(r.Context()); ok {
		return cart.UserKey(id)
	}

	if c, err := r.Cookie(cartSessionCookie); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return cart.SessionKey(c.Value)
		}
	}

	sessionID := uuid.NewString()
	if create {
		http.SetCookie(w, &http.Cookie{
			Name:     cartSessionCookie,
			Value:    sessionID,
			Path:     "/",
			Expires:  time.Now().Add(h.Config.CartTTL),
			HttpOnly: true,
			Secure:   h.Config.IsProduction(),
			SameSite: http.SameSiteLaxMode,
		})
	}
	return cart.SessionKey(sessionID)
}

func (h *Handler) expireCartCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cartSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.Carts.View(r.Context(), h.cartKey(w, r, false))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, view)
}

type cartItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// decodeCartItem reads a JSON body or the web cart form. The product id of
// an update comes from the path, so withProduct is false there.
func decodeCartItem(r *http.Request, withProduct bool) (cartItemRequest, error) {
	var req cartItemRequest
	if !isFormPost(r) {
		err := decodeJSON(r, &req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, apperr.Invalid("body", "malformed form")
	}
	var v apperr.Validation
	if withProduct {
		id := formInt(r, "product_id", &v)
		v.Check(id > 0, "product_id", "must be a positive integer")
		if id > 0 {
			req.ProductID = uint(id)
		}
	}
	req.Quantity = formInt(r, "quantity", &v)
	return req, v.Err()
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCartItem(r, true)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := h.cartKey(w, r, true)
	if err := h.Carts.Add(r.Context(), key, req.ProductID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, key)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodeCartItem(r, false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := h.cartKey(w, r, true)
	if err := h.Carts.Update(r.Context(), key, productID, req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, key)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := h.cartKey(w, r, false)
	if err := h.Carts.Remove(r.Context(), key, productID); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, key)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	key := h.cartKey(w, r, false)
	if err := h.Carts.Clear(r.Context(), key); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, key)
}

// respondCart answers every cart mutation with the repriced cart.
func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, key string) {
	view, err := h.Carts.View(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, view)
}

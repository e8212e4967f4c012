package httpapi

import (
	"net/http"
	"time"

	"getir-be/internal/auth"
	"getir-be/internal/cart"
	"getir-be/internal/logger"
	"getir-be/internal/user"

	"go.uber.org/zap"
)

type registerRequest struct {
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email"`
}

type phoneRequest struct {
	Phone  string      `json:"phone"`
	Action auth.Action `json:"action"`
}

type verifyRequest struct {
	Phone  string      `json:"phone"`
	Code   string      `json:"code"`
	Action auth.Action `json:"action"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	challenge, err := h.Auth.Register(r.Context(), req.Name, req.Phone, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created(w, challenge)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	challenge, err := h.Auth.Login(r.Context(), req.Phone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, challenge)
}

func (h *Handler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req phoneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	challenge, err := h.Auth.Resend(r.Context(), req.Phone, req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, challenge)
}

// verifyPhone exchanges a code for a session. The token is returned in the
// body for the mobile app and set as a cookie for the web; a guest cart is
// folded into the user's cart.
func (h *Handler) verifyPhone(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.Auth.Verify(r.Context(), req.Phone, req.Code, req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	if c, err := r.Cookie(cartSessionCookie); err == nil && c.Value != "" {
		if err := h.Carts.Merge(r.Context(), cart.SessionKey(c.Value), cart.UserKey(session.User.ID)); err != nil {
			logger.FromCtx(r.Context()).Warn("cart merge failed",
				zap.String("layer", "http"),
				zap.Uint("user_id", session.User.ID),
				zap.Error(err),
			)
		} else {
			h.expireCartCookie(w)
		}
	}

	ok(w, session)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	ok(w, nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.GetByID(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

type profileRequest struct {
	Name          *string  `json:"name"`
	Email         *string  `json:"email"`
	Address       *string  `json:"address"`
	Lat           *float64 `json:"lat"`
	Lng           *float64 `json:"lng"`
	GovernorateID *uint    `json:"governorate_id"`
	CityID        *uint    `json:"city_id"`
	AreaID        *uint    `json:"area_id"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.Users.UpdateProfile(r.Context(), user.UpdateProfileParams{
		UserID:        caller(r),
		Name:          req.Name,
		Email:         req.Email,
		Address:       req.Address,
		Lat:           req.Lat,
		Lng:           req.Lng,
		GovernorateID: req.GovernorateID,
		CityID:        req.CityID,
		AreaID:        req.AreaID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, u)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.Users.ChangePassword(r.Context(), caller(r), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	ok(w, nil)
}

type clientConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	Environment string `json:"environment"`
}

// clientConfig tells the mobile app which base URL to call; Android
// emulators reach the host machine through 10.0.2.2.
func (h *Handler) clientConfig(w http.ResponseWriter, r *http.Request) {
	ok(w, clientConfig{
		APIBaseURL:  h.Config.ClientBaseURL(queryBool(r, "emulator")),
		Environment: h.Config.AppEnv,
	})
}

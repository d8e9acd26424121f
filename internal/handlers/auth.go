package handlers

import (
	"net/http"

	"civicconnect/internal/config"
	"civicconnect/internal/services"
	"civicconnect/internal/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth   *services.AuthService
	cookie config.JWTConfig
}

func NewAuthHandler(auth *services.AuthService, cookie config.JWTConfig) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		cookie: cookie,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if !bindJSON(c, &in, false) {
		return
	}

	user, err := h.auth.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "Registration successful", user)
}

// Login returns the session and also sets it as an HttpOnly cookie for browser clients.
func (h *AuthHandler) Login(c *gin.Context) {
	var in services.LoginInput
	if !bindJSON(c, &in, false) {
		return
	}

	session, err := h.auth.Login(c.Request.Context(), in, c.ClientIP())
	if err != nil {
		respondError(c, err)
		return
	}

	h.setCookie(c, session.Token, int(h.cookie.AccessTTL.Seconds()))
	utils.SuccessResponseWithMessage(c, "Login successful", session)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	utils.SuccessResponseWithMessage(c, "Logged out", nil)
}

func (h *AuthHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.CookieName, value, maxAge, "/", "", h.cookie.CookieSecure, true)
}

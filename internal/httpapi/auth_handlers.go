package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rpattn/movementcontrol/internal/auth"
	"github.com/rpattn/movementcontrol/internal/middleware"
)

func (a *API) setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(a.opts.CookieName, token, maxAge, "/", "", a.opts.SecureCookie, true)
}

func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, badRequest("body", "malformed JSON"))
		return
	}
	if req.Username == "" || req.Password == "" {
		a.writeError(c, auth.ErrInvalidCredentials)
		return
	}

	login, err := a.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.setSessionCookie(c, login.Token, int(time.Until(login.ExpiresAt).Seconds()))
	c.JSON(http.StatusOK, loginResponse{User: login.User, Token: login.Token, ExpiresAt: login.ExpiresAt})
}

func (a *API) logout(c *gin.Context) {
	if token := middleware.TokenFromRequest(c, a.opts.CookieName); token != "" {
		if err := a.auth.Logout(c.Request.Context(), token); err != nil {
			a.writeError(c, err)
			return
		}
	}
	a.setSessionCookie(c, "", -1)
	c.Status(http.StatusNoContent)
}

func (a *API) me(c *gin.Context) {
	user, ok := auth.UserFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}
	actor := auth.ActorFromContext(c.Request.Context())
	c.JSON(http.StatusOK, meResponse{
		User:        user,
		FullName:    user.FullName(),
		Initials:    user.Initials(),
		Permissions: a.svc.Gate().Effective(actor),
	})
}

package httpapi

import (
	"crypto/subtle"
	"net/http"

	"voice-dashboard/internal/apperrors"
	"voice-dashboard/internal/signup"
	"voice-dashboard/pkg/logger"

	"github.com/gin-gonic/gin"
)

const webhookSecretHeader = "X-Webhook-Secret"

// UserCreated receives the auth database webhook for new users and provisions
// their organization. The caller authenticates with a shared secret.
func (h Handlers) UserCreated(c *gin.Context) {
	if h.Signup == nil || h.SignupSecret == "" {
		notConfigured(c, "signup")
		return
	}
	got := c.GetHeader(webhookSecretHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.SignupSecret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
		return
	}

	var payload signup.HookPayload
	if !bind(c, &payload) {
		return
	}
	u, err := signup.NewUserFromHook(payload)
	if err != nil {
		respondError(c, apperrors.Validation("record", err.Error()))
		return
	}
	res, err := h.Signup.Provision(c.Request.Context(), u)
	if err != nil {
		logger.FromGin(c).Error("signup provisioning failed", "user_id", u.UserID, "err", err)
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cella-health/cella/internal/session"
	"github.com/cella-health/cella/pkg/types"
)

const sessionKey = "cella.session"

// withSession signs the :user path parameter in on a request-scoped
// session.Context and signs it out when the handler returns. Handlers read
// the owner filter from that context rather than from the path.
func (h *Handlers) withSession(c *gin.Context) {
	sc := session.New()
	sc.Observe(func(from, to session.State, s session.Session) {
		h.logger.Debug("session",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.String("user", s.UserID))
	})

	err := sc.Begin()
	if err == nil {
		err = sc.Complete(session.Session{
			UserID: c.Param("user"),
			Email:  c.GetHeader("X-Cella-Email"),
			Role:   c.GetHeader("X-Cella-Role"),
		})
	}
	if err != nil {
		h.fail(c, statusFor(err), err)
		return
	}

	c.Set(sessionKey, sc)
	c.Next()
	_ = sc.SignOut()
}

// currentUser returns the signed-in user of the request, or types.NoOwner
// when the route carries no session.
func currentUser(c *gin.Context) types.OwnerFilter {
	v, ok := c.Get(sessionKey)
	if !ok {
		return types.NoOwner
	}
	sc, ok := v.(*session.Context)
	if !ok {
		return types.NoOwner
	}
	return sc.UserID()
}

// requireUser returns the session user or fails the request with 401.
func (h *Handlers) requireUser(c *gin.Context) (types.OwnerFilter, bool) {
	user := currentUser(c)
	if !user.IsSet() {
		h.fail(c, http.StatusUnauthorized, types.ErrInvalidID)
		return types.NoOwner, false
	}
	return user, true
}

package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/cdrr_triage/config"
	"bitbucket.org/mmdatafocus/cdrr_triage/models"
	"bitbucket.org/mmdatafocus/cdrr_triage/reportstore"
	"bitbucket.org/mmdatafocus/cdrr_triage/utils"
)

const userCacheTTL = 30 * time.Minute

// SessionMiddleware resolves the caller's token to a cached identity. The
// token itself is opaque here; authentication happened upstream. A missing or
// unresolvable identity does NOT abort the request: handlers derive a
// deny-all capability set from the absent user instead.
func SessionMiddleware(store *reportstore.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			if auth := c.Request.Header.Get("Authorization"); len(auth) > len("Bearer ") {
				token = auth[len("Bearer "):]
			}
		}
		if token == "" {
			c.Next()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)

		var user models.User
		cached, err := config.GetRedisObject("User:"+token, &user)
		if err == nil && cached {
			ctx = utils.SetUserInContext(ctx, &user)
			ctx = utils.SetUsernameInContext(ctx, user.Username)
			ctx = utils.SetUserIdInContext(ctx, user.ID)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		fetched, err := store.CurrentUser(ctx)
		if err != nil {
			// Identity lookup failed: drop whatever was cached for the token
			// and leave the user absent so capability resolution denies
			// everything except viewing.
			config.LogError(config.GetLogger(), "middlewares", "SessionMiddleware", "CurrentUser", nil, err)
			_ = config.RemoveRedisKey("User:" + token)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		_ = config.SetRedisObject("User:"+token, fetched, userCacheTTL)
		ctx = utils.SetUserInContext(ctx, fetched)
		ctx = utils.SetUsernameInContext(ctx, fetched.Username)
		ctx = utils.SetUserIdInContext(ctx, fetched.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CurrentUserFromContext returns the identity placed by SessionMiddleware,
// nil when the request carries none.
func CurrentUserFromContext(c *gin.Context) *models.User {
	raw := utils.GetUserFromContext(c.Request.Context())
	user, _ := raw.(*models.User)
	return user
}

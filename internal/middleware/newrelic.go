package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// CallerAttributes tags the New Relic transaction started by nrgin with the
// authenticated caller. Must run after Auth; a no-op without a transaction.
func CallerAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		if txn := nrgin.Transaction(c); txn != nil {
			txn.AddAttribute("caller.id", CallerID(c))
			txn.AddAttribute("caller.role", string(CallerRole(c)))
			if rideID := c.Param("id"); rideID != "" {
				txn.AddAttribute("ride.id", rideID)
			}
		}
		c.Next()

		if txn := nrgin.Transaction(c); txn != nil {
			for _, err := range c.Errors {
				txn.NoticeError(err.Err)
			}
		}
	}
}

package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"transport_routes/internal/config"
	"transport_routes/internal/store"
)

// HealthCheck reports whether the database answers a trivial query.
func HealthCheck(conn config.Connector) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().Format(time.RFC3339)

		dbConn, err := conn.Acquire(c.Request.Context())
		if err == nil {
			defer dbConn.Release()
			err = store.New(dbConn.DB).Ping()
		}
		if err != nil {
			logrus.WithError(err).Warn("HealthCheck: database unavailable")
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":    "Error",
				"database":  "Disconnected",
				"connected": false,
				"timestamp": now,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"database":  "Connected",
			"connected": true,
			"timestamp": now,
		})
	}
}

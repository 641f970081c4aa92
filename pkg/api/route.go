package api

import (
	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/envlake/internal"
	"github.com/m-mizutani/envlake/pkg/status"
	"github.com/sirupsen/logrus"
)

var logger = internal.Logger

type apiResponse struct {
	Code    int
	Message interface{}
}

type handler func(reg *status.Registry, c *gin.Context) (*apiResponse, Error)

func handleRequest(reg *status.Registry, c *gin.Context, hdlr handler) {
	resp, err := hdlr(reg, c)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		}).Warn("Request failed")
		c.JSON(err.Code(), gin.H{"message": err.Message()})
	} else {
		c.JSON(resp.Code, resp.Message)
	}
}

// SetupRoute registers status endpoints
func SetupRoute(r gin.IRouter, reg *status.Registry) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/status", func(c *gin.Context) {
		handleRequest(reg, c, getStatusList)
	})
	r.GET("/status/*component", func(c *gin.Context) {
		handleRequest(reg, c, getComponentStatus)
	})
}

// NewEngine creates gin engine with status routes
func NewEngine(reg *status.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	SetupRoute(r, reg)
	return r
}

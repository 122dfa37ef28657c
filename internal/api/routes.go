package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "seq": s.market.Seq()})
	})

	v1 := s.router.Group("/v1")

	v1.GET("/accounts/:address", s.getAccount)
	v1.POST("/accounts/:address/deposit", s.deposit)

	v1.GET("/reps", s.getReps)
	v1.POST("/reps", s.createRep)

	v1.GET("/tokens/:address", s.getToken)
	v1.GET("/tokens/:address/balances/:holder", s.getTokenBalance)
	v1.GET("/tokens/:address/quote/mint", s.quoteMint)
	v1.GET("/tokens/:address/quote/burn", s.quoteBurn)
	v1.GET("/tokens/:address/quote/sale", s.quoteSale)
	v1.POST("/tokens/:address/mint", s.mint)
	v1.POST("/tokens/:address/burn", s.burn)
	v1.POST("/tokens/:address/project-address", s.changeProjectAddress)

	if s.stream != nil {
		v1.GET("/events/ws", gin.WrapH(s.stream))
	}
}

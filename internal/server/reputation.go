package server

import (
	"net/http"

	reputationdomain "github.com/blizzgame/marketplace/internal/reputation/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListBadges(c *gin.Context) {
	lang := language(c.Query("lang"), c.GetHeader("Accept-Language"))
	c.JSON(http.StatusOK, gin.H{"data": s.reputationSvc.Badges(c.Request.Context(), lang)})
}

func (s *Server) GetSellerReputation(c *gin.Context) {
	sellerID, err := parseSellerID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	lang := language(c.Query("lang"), c.GetHeader("Accept-Language"))
	rep, err := s.reputationSvc.GetSellerReputation(c.Request.Context(), sellerID, lang)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rep})
}

func (s *Server) RecordSellerOutcome(c *gin.Context) {
	sellerID, err := parseSellerID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req reputationdomain.RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.SellerID = sellerID

	rep, err := s.reputationSvc.RecordOutcome(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": rep})
}

package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	paymentdomain "github.com/blizzgame/marketplace/internal/payment/domain"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type paymentNotification struct {
	TransactionID string `form:"cpm_trans_id" json:"cpm_trans_id"`
	SiteID        string `form:"cpm_site_id" json:"cpm_site_id"`
}

func (s *Server) InitiatePayment(c *gin.Context) {
	var req paymentdomain.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.OrderID = c.Param("id")

	resp, err := s.paymentSvc.InitiatePayment(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// PaymentNotification receives CinetPay's server-to-server callback. The
// body is never trusted; the service re-checks the status with the provider.
func (s *Server) PaymentNotification(c *gin.Context) {
	var note paymentNotification
	var err error
	if strings.HasPrefix(c.ContentType(), binding.MIMEJSON) {
		err = c.ShouldBindJSON(&note)
	} else {
		err = c.ShouldBind(&note)
	}
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if note.TransactionID == "" {
		note.TransactionID = c.Query("cpm_trans_id")
	}

	res, err := s.paymentSvc.HandleNotification(c.Request.Context(), note.TransactionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "data": res})
}

// PaymentReturn backs the browser redirect after checkout. It reports the
// stored state and never settles anything.
func (s *Server) PaymentReturn(c *gin.Context) {
	status, err := s.paymentSvc.GetPaymentStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      status,
		"cancelled": c.Query("cancelled") == "1",
	})
}

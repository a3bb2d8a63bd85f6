package server

import (
	"io"
	"net/http"

	commercedomain "github.com/blizzgame/marketplace/internal/commerce/domain"
	"github.com/blizzgame/marketplace/internal/commerce/shopify"
	"github.com/gin-gonic/gin"
)

// maxWebhookBody bounds what is buffered before the signature check.
const maxWebhookBody = 2 << 20

func (s *Server) shopifyWebhook(topic string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("webhook_topic", topic)

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}

		res, err := s.commerceSvc.IngestWebhook(c.Request.Context(), commercedomain.WebhookRequest{
			Topic:     topic,
			WebhookID: c.GetHeader(shopify.WebhookIDHeader),
			Signature: c.GetHeader(shopify.HmacHeader),
			Body:      body,
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok", "data": res})
	}
}

func (s *Server) SyncCatalog(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	res, err := s.commerceSvc.SyncCatalog(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": res})
}

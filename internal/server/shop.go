package server

import (
	"net/http"
	"strconv"
	"time"

	shopdomain "github.com/blizzgame/marketplace/internal/shop/domain"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type cartItemView struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Total     string `json:"total"`
}

type cartView struct {
	ID    string         `json:"id"`
	Items []cartItemView `json:"items"`
	Total string         `json:"total"`
}

type orderItemView struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	TotalPrice  string `json:"total_price"`
}

type orderView struct {
	ID                      string          `json:"id"`
	OrderNumber             string          `json:"order_number"`
	Status                  string          `json:"status"`
	PaymentStatus           string          `json:"payment_status"`
	CustomerEmail           string          `json:"customer_email"`
	CustomerName            string          `json:"customer_name"`
	ShippingCity            string          `json:"shipping_city"`
	ShippingCountry         string          `json:"shipping_country"`
	Subtotal                string          `json:"subtotal"`
	ShippingCost            string          `json:"shipping_cost"`
	TaxAmount               string          `json:"tax_amount"`
	TotalAmount             string          `json:"total_amount"`
	Currency                string          `json:"currency"`
	RemoteOrderNumber       string          `json:"remote_order_number,omitempty"`
	RemoteFulfillmentStatus string          `json:"remote_fulfillment_status,omitempty"`
	Items                   []orderItemView `json:"items"`
	CreatedAt               time.Time       `json:"created_at"`
	ShippedAt               *time.Time      `json:"shipped_at,omitempty"`
}

func toCartView(cart *shopdomain.Cart) cartView {
	view := cartView{ID: strconv.FormatInt(cart.ID, 10), Items: make([]cartItemView, 0, len(cart.Items))}
	total := decimal.Zero
	for _, item := range cart.Items {
		line := item.Total()
		total = total.Add(line)
		view.Items = append(view.Items, cartItemView{
			ID:        strconv.FormatInt(item.ID, 10),
			ProductID: strconv.FormatInt(item.ProductID, 10),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Total:     line.StringFixed(2),
		})
	}
	view.Total = total.StringFixed(2)
	return view
}

func toOrderView(order *shopdomain.Order) orderView {
	view := orderView{
		ID:                      strconv.FormatInt(order.ID, 10),
		OrderNumber:             order.OrderNumber,
		Status:                  string(order.Status),
		PaymentStatus:           string(order.PaymentStatus),
		CustomerEmail:           order.CustomerEmail,
		CustomerName:            order.CustomerName(),
		ShippingCity:            order.ShippingCity,
		ShippingCountry:         order.ShippingCountry,
		Subtotal:                order.Subtotal.StringFixed(2),
		ShippingCost:            order.ShippingCost.StringFixed(2),
		TaxAmount:               order.TaxAmount.StringFixed(2),
		TotalAmount:             order.TotalAmount.StringFixed(2),
		Currency:                shopdomain.DefaultCurrency,
		RemoteOrderNumber:       order.RemoteOrderNumber,
		RemoteFulfillmentStatus: order.RemoteFulfillmentStatus,
		Items:                   make([]orderItemView, 0, len(order.Items)),
		CreatedAt:               order.CreatedAt,
		ShippedAt:               order.ShippedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, orderItemView{
			ProductID:   strconv.FormatInt(item.ProductID, 10),
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Quantity:    item.Quantity,
			TotalPrice:  item.TotalPrice.StringFixed(2),
		})
	}
	return view
}

func (s *Server) ListCountries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.shopSvc.Countries(c.Request.Context())})
}

func (s *Server) AddCartItem(c *gin.Context) {
	var req shopdomain.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cart, err := s.shopSvc.AddCartItem(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toCartView(cart)})
}

func (s *Server) Checkout(c *gin.Context) {
	var req shopdomain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.shopSvc.Checkout(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toOrderView(order)})
}

func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.shopSvc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toOrderView(order)})
}

package shopify

import (
	"encoding/json"
	"strconv"
)

// ID accepts both numeric and string identifiers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = ID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*id = ID(s)
	return nil
}

func (id ID) String() string { return string(id) }

// Int64 returns 0 when the id is not numeric.
func (id ID) Int64() int64 {
	n, _ := strconv.ParseInt(string(id), 10, 64)
	return n
}

type Product struct {
	ID          ID        `json:"id"`
	Title       string    `json:"title"`
	BodyHTML    string    `json:"body_html"`
	Vendor      string    `json:"vendor"`
	ProductType string    `json:"product_type"`
	Handle      string    `json:"handle"`
	Status      string    `json:"status"`
	Tags        string    `json:"tags"`
	Variants    []Variant `json:"variants"`
}

func (p Product) FirstVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

type Variant struct {
	ID                ID     `json:"id"`
	ProductID         ID     `json:"product_id"`
	Title             string `json:"title"`
	Price             string `json:"price"`
	SKU               string `json:"sku"`
	InventoryQuantity int    `json:"inventory_quantity"`
}

type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Country   string `json:"country"`
	Zip       string `json:"zip"`
	Phone     string `json:"phone"`
}

// LineItem is sent with either a variant id or a title for custom lines.
type LineItem struct {
	ID        ID     `json:"id,omitempty"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderInput struct {
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	LineItems       []LineItem `json:"line_items,omitempty"`
	ShippingAddress *Address   `json:"shipping_address,omitempty"`
	BillingAddress  *Address   `json:"billing_address,omitempty"`
	FinancialStatus string     `json:"financial_status,omitempty"`
	Tags            string     `json:"tags,omitempty"`
	Note            string     `json:"note,omitempty"`
	SourceName      string     `json:"source_name,omitempty"`
}

type Order struct {
	ID                ID          `json:"id"`
	Name              string      `json:"name"`
	OrderNumber       json.Number `json:"order_number"`
	Email             string      `json:"email"`
	FinancialStatus   string      `json:"financial_status"`
	FulfillmentStatus string      `json:"fulfillment_status"`
	LineItems         []LineItem  `json:"line_items"`
}

type Fulfillment struct {
	ID              ID     `json:"id,omitempty"`
	OrderID         ID     `json:"order_id,omitempty"`
	Status          string `json:"status,omitempty"`
	TrackingNumber  string `json:"tracking_number,omitempty"`
	TrackingCompany string `json:"tracking_company,omitempty"`
	NotifyCustomer  bool   `json:"notify_customer,omitempty"`
}

type Refund struct {
	ID      ID     `json:"id"`
	OrderID ID     `json:"order_id"`
	Note    string `json:"note"`
}

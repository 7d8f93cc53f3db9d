package entities

import "time"

type LineItem struct {
	Id       string  `json:"id"`
	PieceId  string  `json:"piece_id"`
	IdMolde  string  `json:"id_molde"`
	IdColor  string  `json:"id_color"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

func (li LineItem) LinePrice() float64 {
	return li.Price * float64(li.Quantity)
}

// Cart keeps line items in insertion order.
type Cart struct {
	Items []LineItem
}

func (c *Cart) Index(id string) int {
	for i := range c.Items {
		if c.Items[i].Id == id {
			return i
		}
	}
	return -1
}

func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total = total + item.LinePrice()
	}
	return total
}

func (c *Cart) Count() int {
	var n int
	for _, item := range c.Items {
		n = n + item.Quantity
	}
	return n
}

func (c Cart) Clone() Cart {
	items := make([]LineItem, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

type AddRequest struct {
	Id      string
	PieceId string
	IdMolde string
	IdColor string
	Name    string
	Color   string
	Price   string
	Image   string
}

type CartResponse struct {
	Items    []LineItem `json:"items"`
	Subtotal float64    `json:"subtotal"`
	Count    int        `json:"count"`
}

type Piece struct {
	Id       string  `json:"id"`
	IdMolde  string  `json:"id_molde"`
	IdColor  string  `json:"id_color"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
}

type FilterState struct {
	SearchTerm   string
	Category     string
	VisibleCount int
}

type GridEntry struct {
	Piece   Piece
	Visible bool
	Loaded  bool
}

type GridView struct {
	Entries  []GridEntry
	Matching int
	Shown    int
	HasMore  bool
}

type Handoff struct {
	Id            string    `json:"id"`
	CartSessionId string    `json:"cart_session_id"`
	Date          time.Time `json:"date"`
	Items         int       `json:"items"`
	Subtotal      float64   `json:"subtotal"`
	Message       string    `json:"message"`
	Link          string    `json:"link,omitempty"`
}

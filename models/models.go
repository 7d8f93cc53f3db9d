package models

import (
	"database/sql"
	"errors"
)

var ErrBadRequest = errors.New("bad request")
var ErrServerError = errors.New("server error")
var ErrNotFoundError = errors.New("not found")
var ErrNotAllowed = errors.New("not acceptable")

var ErrInvalidQuantity = errors.New("invalid quantity")
var ErrInvalidPrice = errors.New("invalid price")
var ErrCancelled = errors.New("cancelled by user")
var ErrEmptyCart = errors.New("cart is empty")

// User-facing messages. The storefront is Spanish-only.
const (
	MsgEmptyCart        = "Tu carrito está vacío"
	MsgInvalidQuantity  = "Por favor, ingrese una cantidad válida (0 o mayor)."
	MsgInvalidPrice     = "El precio del producto no es válido."
	MsgConfirmRemove    = "¿Estás seguro de que quieres eliminar este ítem del carrito?"
	MsgConfirmClear     = "¿Estás seguro de que quieres vaciar el carrito?"
	MsgEmptyCartOrder   = "El carrito está vacío. Añade productos antes de enviar el pedido."
	MsgAddToCart        = "Añadir al Carrito"
	DefaultCategory     = "Sin categoría"
	DefaultColor        = "Sin color"
	CategoryAll         = "all"
	CurrencyPrefix      = "Q"
	CartStorageKey      = "rekubricksCart"
	DefaultRevealPage   = 50
	DefaultWhatsAppHost = "https://wa.me/"
)

// LineItem_store is the persisted shape of a cart line. Older snapshots
// carry only id/pieceId, so every variant field is optional on read.
type LineItem_store struct {
	Id       string  `json:"id"`
	PieceId  string  `json:"pieceId,omitempty"`
	IdMolde  string  `json:"idMolde,omitempty"`
	IdColor  string  `json:"idColor,omitempty"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	Price    float64 `json:"price"`
	Image    string  `json:"image"`
	Quantity int     `json:"quantity"`
}

type Piece_db struct {
	Id       string          `db:"Id"`
	IdMolde  sql.NullString  `db:"IdMolde"`
	IdColor  sql.NullString  `db:"IdColor"`
	Name     string          `db:"Name"`
	Color    sql.NullString  `db:"Color"`
	Category sql.NullString  `db:"Category"`
	Price    sql.NullFloat64 `db:"Price"`
	Image    sql.NullString  `db:"Image"`
}

// Piece_file is one row of a YAML catalog seed. Column names follow the
// spreadsheet export the catalog is maintained in.
type Piece_file struct {
	Id       string   `yaml:"Piece_ID"`
	IdMolde  string   `yaml:"ID_MOLDE"`
	IdColor  string   `yaml:"ID_COLOR"`
	Name     string   `yaml:"Piece_Name"`
	Color    string   `yaml:"Color"`
	Category string   `yaml:"Category"`
	Price    *float64 `yaml:"Price"`
	Image    string   `yaml:"Image_URL"`
}

// Package views renders the cart panel, product widgets and catalog page.
// Rendering is a pure function of cart and filter state.
package views

import (
	"bytes"
	"html/template"
	"io"
	"rekubricks/entities"
	"rekubricks/models"
	"rekubricks/services"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	SurfaceCartItems = "cartItems"
	SurfaceSubtotal  = "subtotalAmount"
	SurfaceCount     = "cartCount"
	widgetPrefix     = "widget:"
)

func WidgetSurface(id string) string {
	return widgetPrefix + id
}

// Surfaces holds rendered fragments by name. Writes to a name that was
// never registered are dropped.
type Surfaces struct {
	regions map[string]template.HTML
}

func NewSurfaces(names ...string) *Surfaces {
	s := &Surfaces{regions: make(map[string]template.HTML)}
	for _, n := range names {
		s.Register(n)
	}
	return s
}

// CartSurfaces registers the cart panel surfaces.
func CartSurfaces() *Surfaces {
	return NewSurfaces(SurfaceCartItems, SurfaceSubtotal, SurfaceCount)
}

func (s *Surfaces) Register(name string) {
	if _, ok := s.regions[name]; !ok {
		s.regions[name] = ""
	}
}

func (s *Surfaces) Has(name string) bool {
	_, ok := s.regions[name]
	return ok
}

func (s *Surfaces) Write(name string, html template.HTML) {
	if _, ok := s.regions[name]; ok {
		s.regions[name] = html
	}
}

func (s *Surfaces) Get(name string) template.HTML {
	return s.regions[name]
}

// Widgets lists the item ids with a registered widget surface, sorted.
func (s *Surfaces) Widgets() []string {
	var ids []string
	for name := range s.regions {
		if strings.HasPrefix(name, widgetPrefix) {
			ids = append(ids, strings.TrimPrefix(name, widgetPrefix))
		}
	}
	sort.Strings(ids)
	return ids
}

type Renderer struct {
	tmpl     *template.Template
	surfaces *Surfaces
	catalog  map[string]entities.Piece
	log      *zap.Logger
}

type panelData struct {
	Items     []entities.LineItem
	EmptyText string
}

type widgetData struct {
	Key     string
	Piece   entities.Piece
	Item    *entities.LineItem
	AddText string
}

type Card struct {
	Piece  entities.Piece
	Loaded bool
	Widget template.HTML
}

type PageData struct {
	Filter     entities.FilterState
	Categories []string
	Grid       entities.GridView
	Cards      []Card
	Panel      template.HTML
	Subtotal   string
	Count      int
	MoreURL    string
}

func NewRenderer(surfaces *Surfaces, logger *zap.Logger) (*Renderer, error) {
	if surfaces == nil {
		surfaces = NewSurfaces()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	funcs := template.FuncMap{
		"money": services.FormatMoney,
	}
	tmpl := template.New("views").Funcs(funcs)
	for _, src := range []string{cartPanelTmpl, widgetTmpl, gridTmpl, pageTmpl} {
		var err error
		tmpl, err = tmpl.Parse(src)
		if err != nil {
			return nil, err
		}
	}
	return &Renderer{
		tmpl:     tmpl,
		surfaces: surfaces,
		catalog:  make(map[string]entities.Piece),
		log:      logger,
	}, nil
}

// SetCatalog lets widgets for removed items redraw their add button.
func (r *Renderer) SetCatalog(pieces []entities.Piece) {
	for _, p := range pieces {
		r.catalog[p.Id] = p
	}
}

func (r *Renderer) CartPanel(cart entities.Cart) (template.HTML, error) {
	return r.exec("cartPanel", panelData{Items: cart.Items, EmptyText: models.MsgEmptyCart})
}

// Widget renders the add button when the cart has no positive quantity for
// id, and the stepper otherwise.
func (r *Renderer) Widget(id string, cart entities.Cart) (template.HTML, error) {
	data := widgetData{Key: id, AddText: models.MsgAddToCart}
	if p, ok := r.catalog[id]; ok {
		data.Piece = p
	}
	if i := cart.Index(id); i >= 0 && cart.Items[i].Quantity > 0 {
		item := cart.Items[i]
		data.Item = &item
		if data.Piece.Id == "" {
			data.Piece = entities.Piece{Id: item.PieceId, IdMolde: item.IdMolde, IdColor: item.IdColor,
				Name: item.Name, Color: item.Color, Price: item.Price, Image: item.Image}
		}
	}
	return r.exec("widget", data)
}

// CartChanged redraws the panel surfaces, then the affected widgets.
func (r *Renderer) CartChanged(cart entities.Cart, change services.Change) {
	panel, err := r.CartPanel(cart)
	if err != nil {
		r.log.Error("render cart panel", zap.Error(err))
		return
	}
	r.surfaces.Write(SurfaceCartItems, panel)
	r.surfaces.Write(SurfaceSubtotal, template.HTML(template.HTMLEscapeString(services.FormatMoney(cart.Subtotal()))))
	r.surfaces.Write(SurfaceCount, template.HTML(strconv.Itoa(cart.Count())))

	ids := r.surfaces.Widgets()
	if change.Id != "" {
		ids = []string{change.Id}
	}
	for _, id := range ids {
		if !r.surfaces.Has(WidgetSurface(id)) {
			continue
		}
		w, err := r.Widget(id, cart)
		if err != nil {
			r.log.Error("render widget", zap.String("id", id), zap.Error(err))
			continue
		}
		r.surfaces.Write(WidgetSurface(id), w)
	}
}

func (r *Renderer) Cards(view entities.GridView, cart entities.Cart) ([]Card, error) {
	var cards []Card
	for _, e := range view.Entries {
		if !e.Visible {
			continue
		}
		r.catalog[e.Piece.Id] = e.Piece
		w, err := r.Widget(e.Piece.Id, cart)
		if err != nil {
			return nil, err
		}
		cards = append(cards, Card{Piece: e.Piece, Loaded: e.Loaded, Widget: w})
	}
	return cards, nil
}

func (r *Renderer) Grid(w io.Writer, cards []Card) error {
	return r.tmpl.ExecuteTemplate(w, "grid", cards)
}

func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.tmpl.ExecuteTemplate(w, "page", data)
}

func (r *Renderer) exec(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

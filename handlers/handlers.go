package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"rekubricks/entities"
	"rekubricks/models"
	"rekubricks/repository"
	"rekubricks/services"
	"rekubricks/views"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const cartCookie = "cartSessionId"

// maxWidgets bounds how many product widgets one mutation redraws.
const maxWidgets = 250

type Handler struct {
	kv       repository.KVStore
	cas      services.CatalogService
	ors      services.OrderService
	log      *zap.Logger
	pageSize int
	cooldown time.Duration
}

type HandlerParams struct {
	CartStore      repository.KVStore
	CatService     services.CatalogService
	OrdService     services.OrderService
	Logger         *zap.Logger
	PageSize       int
	RevealCooldown time.Duration
}

func NewHandler(params HandlerParams) *Handler {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = models.DefaultRevealPage
	}
	return &Handler{
		kv:       params.CartStore,
		cas:      params.CatService,
		ors:      params.OrdService,
		log:      logger,
		pageSize: pageSize,
		cooldown: params.RevealCooldown,
	}
}

// Router wires every storefront route.
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(h.ErrorHandleMiddleware)

	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/catalog/more", h.RevealMore).Methods("GET")

	router.HandleFunc("/cart", h.GetCart).Methods("GET")
	router.HandleFunc("/cart", h.AddToCart).Methods("POST")
	router.HandleFunc("/cart/clear", h.ClearCart).Methods("POST")
	router.HandleFunc("/cart/order", h.SendOrder).Methods("GET")
	router.HandleFunc("/cart/{id}/quantity", h.SetQuantity).Methods("POST")
	router.HandleFunc("/cart/{id}/delete", h.DeleteFromCart).Methods("POST")
	return router
}

// formPrompter answers confirmations from the request and collects alerts
// for the response.
type formPrompter struct {
	confirmed bool
	alerts    []string
}

func (p *formPrompter) Confirm(message string) bool {
	return p.confirmed
}

func (p *formPrompter) Alert(message string) {
	p.alerts = append(p.alerts, message)
}

type fragmentResponse struct {
	Panel    string            `json:"panel"`
	Subtotal string            `json:"subtotal"`
	Count    string            `json:"count"`
	Widgets  map[string]string `json:"widgets,omitempty"`
	Messages []string          `json:"messages,omitempty"`
}

// cart session

func (h *Handler) cartSession(w http.ResponseWriter, r *http.Request, create bool) (cartSessionId string, err error) {
	c, err := r.Cookie(cartCookie)
	if err == nil && c.Value != "" {
		cartSessionId = c.Value
		return
	}
	if err != nil && !errors.Is(err, http.ErrNoCookie) {
		h.log.Warn("cookie", zap.Error(err))
	}
	err = nil
	if !create {
		return
	}
	cartSessionId = uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cartCookie,
		Value:    cartSessionId,
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Now().Add(24 * time.Hour),
	})
	return
}

func (h *Handler) openCart(cartSessionId string, p services.Prompter, surfaces *views.Surfaces) (*services.CartService, *views.Renderer, error) {
	cartRepo, err := repository.NewCartRepository(h.kv, cartSessionId, h.log)
	if err != nil {
		return nil, nil, err
	}
	cs, err := services.NewCartService(cartRepo, p, h.log)
	if err != nil {
		return nil, nil, err
	}
	renderer, err := views.NewRenderer(surfaces, h.log)
	if err != nil {
		return nil, nil, err
	}
	cs.Subscribe(renderer)
	return cs, renderer, nil
}

// loadCart returns the session's cart, or an empty one when there is no
// session yet.
func (h *Handler) loadCart(w http.ResponseWriter, r *http.Request) (entities.Cart, error) {
	cs, err := h.readCart(w, r)
	if err != nil || cs == nil {
		return entities.Cart{}, err
	}
	return cs.Snapshot(), nil
}

// readCart opens the session's cart without creating a session. It returns
// nil when the request carries none.
func (h *Handler) readCart(w http.ResponseWriter, r *http.Request) (*services.CartService, error) {
	cartSessionId, _ := h.cartSession(w, r, false)
	if cartSessionId == "" {
		return nil, nil
	}
	cs, _, err := h.openCart(cartSessionId, &formPrompter{}, nil)
	return cs, err
}

// catalog

func (h *Handler) filterFromQuery(q url.Values) (*services.FilterService, error) {
	fs, err := h.cas.NewFilter(services.WithPageSize(h.pageSize), services.WithCooldown(h.cooldown))
	if err != nil {
		return nil, err
	}
	fs.SetSearchTerm(q.Get("q"))
	fs.SetCategory(q.Get("category"))
	if shown, e := strconv.Atoi(q.Get("shown")); e == nil && shown > 0 {
		fs.ShowAtLeast(shown)
	}
	return fs, nil
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	fs, err := h.filterFromQuery(r.URL.Query())
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	cart, err := h.loadCart(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	renderer, err := views.NewRenderer(nil, h.log)
	if err != nil {
		h.log.Error("renderer", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	grid := fs.View()
	cards, err := renderer.Cards(grid, cart)
	if err != nil {
		h.log.Error("render cards", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	panel, err := renderer.CartPanel(cart)
	if err != nil {
		h.log.Error("render panel", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	categories, err := h.cas.GetCategories()
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	state := fs.State()
	data := views.PageData{
		Filter:     state,
		Categories: categories,
		Grid:       grid,
		Cards:      cards,
		Panel:      panel,
		Subtotal:   services.FormatMoney(cart.Subtotal()),
		Count:      cart.Count(),
		MoreURL:    moreURL("/", state, grid.Shown+h.pageSize),
	}
	var buf bytes.Buffer
	if err = renderer.Page(&buf, data); err != nil {
		h.log.Error("render page", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// RevealMore answers the scroll trigger with the next batch of cards only.
func (h *Handler) RevealMore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fs, err := h.filterFromQuery(q)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	shown := fs.View().Shown
	fs.RevealMore()
	grid := fs.View()
	cart, err := h.loadCart(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	renderer, err := views.NewRenderer(nil, h.log)
	if err != nil {
		h.log.Error("renderer", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	cards, err := renderer.Cards(grid, cart)
	if err != nil {
		h.log.Error("render cards", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	if shown < len(cards) {
		cards = cards[shown:]
	} else {
		cards = nil
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Shown", strconv.Itoa(grid.Shown))
	w.Header().Set("X-Has-More", strconv.FormatBool(grid.HasMore))
	if err = renderer.Grid(w, cards); err != nil {
		h.log.Error("render grid", zap.Error(err))
	}
}

func moreURL(path string, state entities.FilterState, shown int) string {
	v := url.Values{}
	if state.SearchTerm != "" {
		v.Set("q", state.SearchTerm)
	}
	if state.Category != models.CategoryAll {
		v.Set("category", state.Category)
	}
	v.Set("shown", strconv.Itoa(shown))
	return path + "?" + v.Encode()
}

// cart

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cs, err := h.readCart(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	resp := entities.CartResponse{Items: []entities.LineItem{}}
	if cs != nil {
		resp = cs.Response()
	}
	jsonData, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		h.log.Error("Marshal", zap.Error(err))
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(jsonData)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.log.Info("ParseForm", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	req := entities.AddRequest{
		Id:      r.PostForm.Get("id"),
		PieceId: r.PostForm.Get("pieceId"),
		IdMolde: r.PostForm.Get("idMolde"),
		IdColor: r.PostForm.Get("idColor"),
		Name:    r.PostForm.Get("name"),
		Color:   r.PostForm.Get("color"),
		Price:   r.PostForm.Get("price"),
		Image:   r.PostForm.Get("image"),
	}
	h.mutate(w, r, req.Id, func(cs *services.CartService) error {
		return cs.Add(req)
	})
}

func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := r.ParseForm(); err != nil {
		h.log.Info("ParseForm", zap.Error(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	var change services.QuantityChange
	if d := r.PostForm.Get("delta"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		change = services.Delta(n)
	} else {
		change = services.Absolute(r.PostForm.Get("value"))
	}
	h.mutate(w, r, id, func(cs *services.CartService) error {
		return cs.SetQuantity(id, change)
	})
}

func (h *Handler) DeleteFromCart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	h.mutate(w, r, id, func(cs *services.CartService) error {
		return cs.Remove(id)
	})
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "", func(cs *services.CartService) error {
		return cs.Clear()
	})
}

// mutate runs op against the session cart and answers with the redrawn
// fragments. Widgets listed in the "widget" form field are redrawn too.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, id string, op func(*services.CartService) error) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	cartSessionId, err := h.cartSession(w, r, true)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	prompt := &formPrompter{confirmed: r.PostForm.Get("confirm") == "yes"}
	surfaces := views.CartSurfaces()
	widgetIds := widgetList(r.PostForm["widget"], id, maxWidgets)
	for _, wid := range widgetIds {
		surfaces.Register(views.WidgetSurface(wid))
	}
	cs, renderer, err := h.openCart(cartSessionId, prompt, surfaces)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.attachCatalog(renderer, widgetIds)

	opErr := op(cs)
	if opErr != nil && !isUserError(opErr) {
		WriteErrorResponse(w, opErr)
		return
	}
	if surfaces.Get(views.SurfaceCartItems) == "" {
		cs.Refresh()
	}
	h.log.Debug("cart mutated", zap.String("session", cartSessionId), zap.String("id", id), zap.Int("count", cs.Count()), zap.Error(opErr))

	if !wantsJSON(r) {
		if opErr != nil && len(prompt.alerts) > 0 {
			http.Error(w, strings.Join(prompt.alerts, "\n"), statusFor(opErr))
			return
		}
		if opErr != nil {
			WriteErrorResponse(w, opErr)
			return
		}
		back := r.Referer()
		if back == "" {
			back = "/"
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	resp := fragmentResponse{
		Panel:    string(surfaces.Get(views.SurfaceCartItems)),
		Subtotal: string(surfaces.Get(views.SurfaceSubtotal)),
		Count:    string(surfaces.Get(views.SurfaceCount)),
		Widgets:  map[string]string{},
		Messages: prompt.alerts,
	}
	for _, wid := range surfaces.Widgets() {
		resp.Widgets[wid] = string(surfaces.Get(views.WidgetSurface(wid)))
	}
	writeJSON(w, statusFor(opErr), resp)
}

// widgetList de-duplicates the widget ids a client asked to redraw, keeps at
// most limit of them, and always includes the mutated id.
func widgetList(requested []string, id string, limit int) []string {
	seen := map[string]bool{}
	var out []string
	if id != "" {
		seen[id] = true
		out = append(out, id)
	}
	for _, wid := range requested {
		if len(out) >= limit {
			break
		}
		if wid == "" || seen[wid] {
			continue
		}
		seen[wid] = true
		out = append(out, wid)
	}
	return out
}

func (h *Handler) attachCatalog(renderer *views.Renderer, ids []string) {
	pieces := make([]entities.Piece, 0, len(ids))
	for _, id := range ids {
		p, ok, err := h.cas.GetPiece(id)
		if err != nil {
			h.log.Warn("catalog lookup", zap.String("id", id), zap.Error(err))
			continue
		}
		if ok {
			pieces = append(pieces, p)
		}
	}
	renderer.SetCatalog(pieces)
}

// orders

func (h *Handler) SendOrder(w http.ResponseWriter, r *http.Request) {
	cartSessionId, _ := h.cartSession(w, r, false)
	cart, err := h.loadCart(w, r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	prompt := &formPrompter{}
	handoff, err := h.ors.Handoff(cartSessionId, cart, prompt)
	if err != nil {
		if errors.Is(err, models.ErrEmptyCart) {
			http.Error(w, strings.Join(prompt.alerts, "\n"), http.StatusNotAcceptable)
			return
		}
		WriteErrorResponse(w, err)
		return
	}
	http.Redirect(w, r, handoff.Link, http.StatusSeeOther)
}

// middleware

func (h *Handler) ErrorHandleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.Error("panic occured", zap.Any("panic", rec), zap.String("stacktrace", string(debug.Stack())))
				http.Error(w, "something went wrong, contact with service administration", http.StatusBadGateway)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func isUserError(err error) bool {
	return errors.Is(err, models.ErrInvalidQuantity) ||
		errors.Is(err, models.ErrInvalidPrice) ||
		errors.Is(err, models.ErrCancelled)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, models.ErrInvalidQuantity), errors.Is(err, models.ErrInvalidPrice), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotFoundError):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotAllowed), errors.Is(err, models.ErrEmptyCart):
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonData)
}

func WriteErrorResponse(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = models.ErrServerError.Error()
	}
	http.Error(w, msg, status)
}

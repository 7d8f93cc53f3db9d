package services

import (
	"errors"
	"fmt"
	"math"
	"rekubricks/entities"
	"rekubricks/models"
	"rekubricks/repository"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Prompter is the blocking user dialog the cart needs for confirmations
// and validation messages.
type Prompter interface {
	Confirm(message string) bool
	Alert(message string)
}

type ChangeKind int

const (
	ChangeLoaded ChangeKind = iota
	ChangeAdded
	ChangeQuantity
	ChangeRemoved
	ChangeCleared
	ChangeReverted
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeLoaded:
		return "loaded"
	case ChangeAdded:
		return "added"
	case ChangeQuantity:
		return "quantity"
	case ChangeRemoved:
		return "removed"
	case ChangeCleared:
		return "cleared"
	case ChangeReverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// Change tells listeners what to redraw. An empty Id means every widget.
type Change struct {
	Kind ChangeKind
	Id   string
}

type CartListener interface {
	CartChanged(cart entities.Cart, change Change)
}

type CartService struct {
	cr        repository.CartRepository
	prompt    Prompter
	log       *zap.Logger
	cart      entities.Cart
	listeners []CartListener
}

// NewCartService hydrates the cart from its repository.
func NewCartService(cartRepo repository.CartRepository, prompter Prompter, logger *zap.Logger) (*CartService, error) {
	if cartRepo == nil {
		return nil, errors.New("cart repository must be non-nil")
	}
	if prompter == nil {
		return nil, errors.New("prompter must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cart, err := cartRepo.Load()
	if err != nil {
		return nil, err
	}
	return &CartService{
		cr:     cartRepo,
		prompt: prompter,
		log:    logger,
		cart:   cart,
	}, nil
}

func (cs *CartService) Subscribe(l CartListener) {
	cs.listeners = append(cs.listeners, l)
}

// Refresh redraws every view from current state without mutating it.
func (cs *CartService) Refresh() {
	cs.notify(Change{Kind: ChangeLoaded})
}

func (cs *CartService) Add(req entities.AddRequest) (err error) {
	cs.log.Debug("adding to cart", zap.String("id", req.Id), zap.String("piece_id", req.PieceId), zap.String("color", req.Color))
	if req.Id == "" {
		err = models.ErrBadRequest
		return
	}
	next := cs.cart.Clone()
	if i := next.Index(req.Id); i >= 0 {
		next.Items[i].Quantity = next.Items[i].Quantity + 1
	} else {
		price, ok := parsePrice(req.Price)
		if !ok {
			cs.log.Info("rejected add: invalid price", zap.String("id", req.Id), zap.String("price", req.Price))
			cs.prompt.Alert(models.MsgInvalidPrice)
			err = fmt.Errorf("%w: %q", models.ErrInvalidPrice, req.Price)
			return
		}
		pieceId := req.PieceId
		if pieceId == "" {
			pieceId = req.IdMolde
		}
		if pieceId == "" {
			pieceId = req.Id
		}
		idMolde := req.IdMolde
		if idMolde == "" {
			idMolde = pieceId
		}
		next.Items = append(next.Items, entities.LineItem{
			Id:       req.Id,
			PieceId:  pieceId,
			IdMolde:  idMolde,
			IdColor:  req.IdColor,
			Name:     req.Name,
			Color:    req.Color,
			Price:    price,
			Image:    req.Image,
			Quantity: 1,
		})
	}
	return cs.commit(next, Change{Kind: ChangeAdded, Id: req.Id})
}

// SetQuantity applies an absolute value or a signed step. Unknown ids are
// ignored. An invalid result redraws the current state and is not saved.
func (cs *CartService) SetQuantity(id string, change QuantityChange) (err error) {
	cs.log.Debug("updating quantity", zap.String("id", id), zap.Stringer("change", change))
	i := cs.cart.Index(id)
	if i < 0 {
		return
	}
	qty, ok := change.apply(cs.cart.Items[i].Quantity)
	if !ok {
		cs.prompt.Alert(models.MsgInvalidQuantity)
		cs.notify(Change{Kind: ChangeReverted, Id: id})
		err = fmt.Errorf("%w: %s", models.ErrInvalidQuantity, change)
		return
	}
	next := cs.cart.Clone()
	if qty == 0 {
		next.Items = append(next.Items[:i], next.Items[i+1:]...)
		return cs.commit(next, Change{Kind: ChangeRemoved, Id: id})
	}
	next.Items[i].Quantity = qty
	return cs.commit(next, Change{Kind: ChangeQuantity, Id: id})
}

func (cs *CartService) Remove(id string) (err error) {
	i := cs.cart.Index(id)
	if i < 0 {
		return
	}
	if !cs.prompt.Confirm(models.MsgConfirmRemove) {
		err = models.ErrCancelled
		return
	}
	next := cs.cart.Clone()
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	return cs.commit(next, Change{Kind: ChangeRemoved, Id: id})
}

func (cs *CartService) Clear() (err error) {
	if !cs.prompt.Confirm(models.MsgConfirmClear) {
		err = models.ErrCancelled
		return
	}
	return cs.commit(entities.Cart{Items: []entities.LineItem{}}, Change{Kind: ChangeCleared})
}

func (cs *CartService) Items() []entities.LineItem {
	return cs.cart.Clone().Items
}

func (cs *CartService) Item(id string) (item entities.LineItem, exists bool) {
	if i := cs.cart.Index(id); i >= 0 {
		return cs.cart.Items[i], true
	}
	return
}

func (cs *CartService) Snapshot() entities.Cart {
	return cs.cart.Clone()
}

func (cs *CartService) Subtotal() float64 {
	return cs.cart.Subtotal()
}

// Count is the total quantity across all line items.
func (cs *CartService) Count() int {
	return cs.cart.Count()
}

func (cs *CartService) Response() entities.CartResponse {
	return entities.CartResponse{
		Items:    cs.Items(),
		Subtotal: cs.Subtotal(),
		Count:    cs.Count(),
	}
}

// commit saves next before it becomes visible, then notifies listeners.
func (cs *CartService) commit(next entities.Cart, change Change) (err error) {
	err = cs.cr.Save(next)
	if err != nil {
		cs.log.Error("cart save failed", zap.String("key", cs.cr.Key()), zap.Stringer("change", change.Kind), zap.Error(err))
		return
	}
	cs.cart = next
	cs.notify(change)
	return
}

func (cs *CartService) notify(change Change) {
	snapshot := cs.cart.Clone()
	for _, l := range cs.listeners {
		l.CartChanged(snapshot, change)
	}
}

type QuantityChange struct {
	delta    int
	text     string
	absolute bool
}

// Delta is a stepper change.
func Delta(n int) QuantityChange {
	return QuantityChange{delta: n}
}

// Absolute is a value typed into a quantity field.
func Absolute(text string) QuantityChange {
	return QuantityChange{text: text, absolute: true}
}

func (q QuantityChange) apply(current int) (int, bool) {
	if !q.absolute {
		n := current + q.delta
		return n, n >= 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(q.text))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (q QuantityChange) String() string {
	if q.absolute {
		return strconv.Quote(q.text)
	}
	if q.delta >= 0 {
		return "+" + strconv.Itoa(q.delta)
	}
	return strconv.Itoa(q.delta)
}

func parsePrice(s string) (float64, bool) {
	price, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, false
	}
	return price, true
}

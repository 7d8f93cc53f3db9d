package services

import (
	"fmt"
	"net/url"
	"rekubricks/entities"
	"rekubricks/models"
	"rekubricks/repository"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderService struct {
	phone string
	hr    repository.HandoffRepository
	log   *zap.Logger
	now   func() time.Time
}

// NewOrderService builds WhatsApp handoffs for phone. handoffRepo may be nil,
// in which case handoffs are not logged.
func NewOrderService(phone string, handoffRepo repository.HandoffRepository, logger *zap.Logger) OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return OrderService{
		phone: phone,
		hr:    handoffRepo,
		log:   logger,
		now:   time.Now,
	}
}

func (ors *OrderService) Message(cart entities.Cart) string {
	var b strings.Builder
	b.WriteString("Hola, quisiera realizar un pedido:\n\n")
	b.WriteString("Detalle:\n")
	for _, item := range cart.Items {
		fmt.Fprintf(&b, "- ID Molde: %s, ID Color: %s, Color: %s, Nombre: %s, Cantidad: %d\n",
			item.IdMolde, item.IdColor, item.Color, item.Name, item.Quantity)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s", FormatMoney(cart.Subtotal()))
	return b.String()
}

func (ors *OrderService) DeepLink(cart entities.Cart) (link string, err error) {
	if len(cart.Items) == 0 {
		err = models.ErrEmptyCart
		return
	}
	link = models.DefaultWhatsAppHost + ors.phone + "?text=" + encodeComponent(ors.Message(cart))
	return
}

// Handoff builds the deep link for the cart, alerting through p when the
// cart is empty, and logs the handoff when a repository is configured.
func (ors *OrderService) Handoff(cartSessionId string, cart entities.Cart, p Prompter) (h entities.Handoff, err error) {
	link, err := ors.DeepLink(cart)
	if err != nil {
		if p != nil {
			p.Alert(models.MsgEmptyCartOrder)
		}
		return
	}
	h = entities.Handoff{
		Id:            uuid.NewString(),
		CartSessionId: cartSessionId,
		Date:          ors.now().UTC(),
		Items:         cart.Count(),
		Subtotal:      cart.Subtotal(),
		Message:       ors.Message(cart),
		Link:          link,
	}
	if ors.hr != nil {
		if e := ors.hr.RecordHandoff(h); e != nil {
			ors.log.Warn("handoff not recorded", zap.String("handoff_id", h.Id), zap.Error(e))
		}
	}
	ors.log.Info("order handed off", zap.String("handoff_id", h.Id), zap.Int("items", h.Items), zap.Float64("subtotal", h.Subtotal))
	return
}

func FormatMoney(v float64) string {
	return fmt.Sprintf("%s%.2f", models.CurrencyPrefix, v)
}

// encodeComponent percent-encodes s for a query value with spaces as %20.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

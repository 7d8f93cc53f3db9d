package repository

import (
	"encoding/json"
	"errors"
	"rekubricks/entities"
	"rekubricks/models"

	"go.uber.org/zap"
)

type CartRepository interface {
	Load() (cart entities.Cart, err error)
	Save(cart entities.Cart) (err error)
	Key() string
}

type CartRepo struct {
	store KVStore
	key   string
	log   *zap.Logger
}

// NewCartRepository binds a snapshot slot for one cart session. An empty
// session id uses the bare storage key.
func NewCartRepository(store KVStore, cartSessionId string, logger *zap.Logger) (CartRepository, error) {
	if store == nil {
		return nil, errors.New("store must be non-nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartRepo{
		store: store,
		key:   CartKey(cartSessionId),
		log:   logger,
	}, nil
}

func CartKey(cartSessionId string) string {
	if cartSessionId == "" {
		return models.CartStorageKey
	}
	return cartSessionId + ":" + models.CartStorageKey
}

func (c *CartRepo) Key() string {
	return c.key
}

// Load never fails on bad data: a missing or unparsable snapshot is an empty
// cart. Only a store failure is returned.
func (c *CartRepo) Load() (cart entities.Cart, err error) {
	cart = entities.Cart{Items: []entities.LineItem{}}
	val, exists, err := c.store.Get(c.key)
	if err != nil || !exists {
		return
	}
	var rows []models.LineItem_store
	if e := json.Unmarshal([]byte(val), &rows); e != nil {
		c.log.Warn("Load: discarding unreadable cart snapshot", zap.String("key", c.key), zap.Error(e))
		return
	}
	for _, row := range rows {
		item, ok := upgradeLineItem(row)
		if !ok {
			continue
		}
		if i := cart.Index(item.Id); i >= 0 {
			cart.Items[i].Quantity = cart.Items[i].Quantity + item.Quantity
			continue
		}
		cart.Items = append(cart.Items, item)
	}
	return
}

// Save writes the cart snapshot. An empty cart removes the key so stores
// with expiry do not keep empty carts alive.
func (c *CartRepo) Save(cart entities.Cart) (err error) {
	if len(cart.Items) == 0 {
		return c.store.Delete(c.key)
	}
	rows := make([]models.LineItem_store, 0, len(cart.Items))
	for _, item := range cart.Items {
		rows = append(rows, models.LineItem_store{
			Id:       item.Id,
			PieceId:  item.PieceId,
			IdMolde:  item.IdMolde,
			IdColor:  item.IdColor,
			Name:     item.Name,
			Color:    item.Color,
			Price:    item.Price,
			Image:    item.Image,
			Quantity: item.Quantity,
		})
	}
	jsonData, err := json.Marshal(rows)
	if err != nil {
		c.log.Error("Save: marshal", zap.Error(err))
		err = models.ErrServerError
		return
	}
	err = c.store.Set(c.key, string(jsonData))
	return
}

// upgradeLineItem fills fields that older snapshot revisions did not write.
func upgradeLineItem(row models.LineItem_store) (item entities.LineItem, ok bool) {
	if row.Id == "" || row.Quantity < 1 {
		return
	}
	if row.PieceId == "" {
		row.PieceId = row.IdMolde
	}
	if row.PieceId == "" {
		row.PieceId = row.Id
	}
	if row.IdMolde == "" {
		row.IdMolde = row.PieceId
	}
	item = entities.LineItem{
		Id:       row.Id,
		PieceId:  row.PieceId,
		IdMolde:  row.IdMolde,
		IdColor:  row.IdColor,
		Name:     row.Name,
		Color:    row.Color,
		Price:    row.Price,
		Image:    row.Image,
		Quantity: row.Quantity,
	}
	ok = true
	return
}

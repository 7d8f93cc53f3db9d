package repository

import (
	"testing"

	"rekubricks/entities"
	"rekubricks/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCart() entities.Cart {
	return entities.Cart{Items: []entities.LineItem{
		{Id: "3001-5", PieceId: "3001-5", IdMolde: "3001", IdColor: "5", Name: "Brick 2 x 4", Color: "Red", Price: 1.5, Image: "img/3001.png", Quantity: 3},
		{Id: "3023-11", PieceId: "3023-11", IdMolde: "3023", IdColor: "11", Name: "Plate 1 x 2", Color: "Black", Price: 0.25, Image: "img/3023.png", Quantity: 1},
	}}
}

func TestCartRepo_SaveLoadRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	repo, err := NewCartRepository(store, "", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(sampleCart()))

	fresh, err := NewCartRepository(store, "", nil)
	require.NoError(t, err)
	cart, err := fresh.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleCart().Items, cart.Items)
}

func TestCartRepo_LoadMissingIsEmpty(t *testing.T) {
	repo, err := NewCartRepository(NewMemoryStore(), "abc", nil)
	require.NoError(t, err)
	cart, err := repo.Load()
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
}

func TestCartRepo_LoadMalformedIsEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":     "{{{",
		"wrong shape":  `{"items": 3}`,
		"wrong fields": `[{"id": 7, "quantity": "two"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			store := NewMemoryStore()
			require.NoError(t, store.Set(models.CartStorageKey, raw))
			repo, err := NewCartRepository(store, "", nil)
			require.NoError(t, err)
			cart, err := repo.Load()
			require.NoError(t, err)
			assert.Empty(t, cart.Items)
		})
	}
}

func TestCartRepo_LoadLegacySnapshotDefaultsVariantFields(t *testing.T) {
	store := NewMemoryStore()
	legacy := `[{"id":"3001","pieceId":"3001","name":"Brick","color":"Red","price":1.5,"image":"a.png","quantity":2},
		{"id":"3023","name":"Plate","color":"Blue","price":0.5,"image":"b.png","quantity":1}]`
	require.NoError(t, store.Set(models.CartStorageKey, legacy))
	repo, err := NewCartRepository(store, "", nil)
	require.NoError(t, err)

	cart, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "3001", cart.Items[0].IdMolde)
	assert.Equal(t, "", cart.Items[0].IdColor)
	assert.Equal(t, "3023", cart.Items[1].PieceId)
	assert.Equal(t, "3023", cart.Items[1].IdMolde)
}

func TestCartRepo_LoadDropsZeroQuantityAndMergesDuplicates(t *testing.T) {
	store := NewMemoryStore()
	raw := `[{"id":"a","name":"A","price":1,"quantity":1},
		{"id":"b","name":"B","price":1,"quantity":0},
		{"id":"a","name":"A","price":1,"quantity":2},
		{"id":"","name":"C","price":1,"quantity":4}]`
	require.NoError(t, store.Set(models.CartStorageKey, raw))
	repo, err := NewCartRepository(store, "", nil)
	require.NoError(t, err)

	cart, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "a", cart.Items[0].Id)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestCartRepo_SessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	one, _ := NewCartRepository(store, "one", nil)
	two, _ := NewCartRepository(store, "two", nil)
	require.NoError(t, one.Save(sampleCart()))

	cart, err := two.Load()
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "one:"+models.CartStorageKey, one.Key())
}

func TestCartRepo_SaveEmptyDeletesKey(t *testing.T) {
	store := NewMemoryStore()
	repo, _ := NewCartRepository(store, "", nil)
	require.NoError(t, repo.Save(sampleCart()))
	require.NoError(t, repo.Save(entities.Cart{}))

	_, ok, err := store.Get(models.CartStorageKey)
	require.NoError(t, err)
	assert.False(t, ok)

	cart, err := repo.Load()
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestNewCartRepository_NilStore(t *testing.T) {
	_, err := NewCartRepository(nil, "", nil)
	assert.Error(t, err)
}

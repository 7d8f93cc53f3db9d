package services

import (
	"errors"
	"math"
	"testing"

	"rekubricks/entities"
	"rekubricks/models"
	"rekubricks/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrompter struct {
	answer  bool
	asked   []string
	alerted []string
}

func (p *stubPrompter) Confirm(message string) bool {
	p.asked = append(p.asked, message)
	return p.answer
}

func (p *stubPrompter) Alert(message string) {
	p.alerted = append(p.alerted, message)
}

// countingRepo wraps a real repository and records saves.
type countingRepo struct {
	repository.CartRepository
	saves   int
	events  *[]string
	failing bool
}

func (c *countingRepo) Save(cart entities.Cart) error {
	if c.failing {
		return models.ErrServerError
	}
	c.saves++
	if c.events != nil {
		*c.events = append(*c.events, "save")
	}
	return c.CartRepository.Save(cart)
}

type recordingListener struct {
	changes []Change
	events  *[]string
}

func (l *recordingListener) CartChanged(cart entities.Cart, change Change) {
	l.changes = append(l.changes, change)
	if l.events != nil {
		*l.events = append(*l.events, "render:"+change.Kind.String())
	}
}

func newTestCart(t *testing.T, answer bool) (*CartService, *countingRepo, *stubPrompter, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	base, err := repository.NewCartRepository(store, "", nil)
	require.NoError(t, err)
	repo := &countingRepo{CartRepository: base}
	prompt := &stubPrompter{answer: answer}
	cs, err := NewCartService(repo, prompt, nil)
	require.NoError(t, err)
	return cs, repo, prompt, store
}

func brick(id, price string) entities.AddRequest {
	return entities.AddRequest{Id: id, PieceId: id, IdMolde: "3001", IdColor: "5", Name: "Brick " + id, Color: "Red", Price: price, Image: id + ".png"}
}

func TestCartService_RepeatedAddIncrements(t *testing.T) {
	cs, repo, _, _ := newTestCart(t, true)
	for i := 0; i < 7; i++ {
		require.NoError(t, cs.Add(brick("a", "1.25")))
	}
	items := cs.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 7, items[0].Quantity)
	assert.Equal(t, 7, repo.saves)
}

func TestCartService_AddKeepsInsertionOrder(t *testing.T) {
	cs, _, _, _ := newTestCart(t, true)
	require.NoError(t, cs.Add(brick("b", "1")))
	require.NoError(t, cs.Add(brick("a", "1")))
	require.NoError(t, cs.Add(brick("b", "1")))

	items := cs.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Id)
	assert.Equal(t, "a", items[1].Id)
}

func TestCartService_AddDefaultsReferences(t *testing.T) {
	cs, _, _, _ := newTestCart(t, true)
	require.NoError(t, cs.Add(entities.AddRequest{Id: "x", Name: "X", Price: "2"}))
	item, ok := cs.Item("x")
	require.True(t, ok)
	assert.Equal(t, "x", item.PieceId)
	assert.Equal(t, "x", item.IdMolde)
}

func TestCartService_AddRejectsBadPrice(t *testing.T) {
	for _, price := range []string{"abc", "", "NaN", "-1", "Inf"} {
		t.Run(price, func(t *testing.T) {
			cs, repo, prompt, _ := newTestCart(t, true)
			err := cs.Add(brick("a", price))
			assert.True(t, errors.Is(err, models.ErrInvalidPrice))
			assert.Empty(t, cs.Items())
			assert.Zero(t, repo.saves)
			assert.Equal(t, []string{models.MsgInvalidPrice}, prompt.alerted)
		})
	}
}

func TestCartService_AddRequiresId(t *testing.T) {
	cs, _, _, _ := newTestCart(t, true)
	assert.ErrorIs(t, cs.Add(entities.AddRequest{Price: "1"}), models.ErrBadRequest)
}

func TestCartService_SetQuantity(t *testing.T) {
	cs, _, _, _ := newTestCart(t, true)
	require.NoError(t, cs.Add(brick("a", "1")))

	require.NoError(t, cs.SetQuantity("a", Absolute("12")))
	item, ok := cs.Item("a")
	require.True(t, ok)
	assert.Equal(t, 12, item.Quantity)

	require.NoError(t, cs.SetQuantity("a", Delta(-2)))
	item, _ = cs.Item("a")
	assert.Equal(t, 10, item.Quantity)

	require.NoError(t, cs.SetQuantity("a", Delta(1)))
	item, _ = cs.Item("a")
	assert.Equal(t, 11, item.Quantity)

	require.NoError(t, cs.SetQuantity("a", Absolute(" 0 ")))
	_, ok = cs.Item("a")
	assert.False(t, ok)
}

func TestCartService_StepperToZeroRemoves(t *testing.T) {
	cs, _, _, _ := newTestCart(t, true)
	require.NoError(t, cs.Add(brick("a", "1")))
	require.NoError(t, cs.SetQuantity("a", Delta(-1)))
	assert.Empty(t, cs.Items())
}

func TestCartService_InvalidQuantityLeavesCartUnchanged(t *testing.T) {
	for name, change := range map[string]QuantityChange{
		"letters":        Absolute("abc"),
		"negative":       Absolute("-5"),
		"decimal":        Absolute("2.5"),
		"empty":          Absolute(""),
		"step below one": Delta(-4),
	} {
		t.Run(name, func(t *testing.T) {
			cs, repo, prompt, store := newTestCart(t, true)
			require.NoError(t, cs.Add(brick("a", "1")))
			require.NoError(t, cs.Add(brick("a", "1")))
			before, _, _ := store.Get(models.CartStorageKey)
			saves := repo.saves
			listener := &recordingListener{}
			cs.Subscribe(listener)

			err := cs.SetQuantity("a", change)
			assert.ErrorIs(t, err, models.ErrInvalidQuantity)

			item, ok := cs.Item("a")
			require.True(t, ok)
			assert.Equal(t, 2, item.Quantity)
			assert.Equal(t, saves, repo.saves)
			after, _, _ := store.Get(models.CartStorageKey)
			assert.Equal(t, before, after)
			assert.Equal(t, []string{models.MsgInvalidQuantity}, prompt.alerted)
			require.Len(t, listener.changes, 1)
			assert.Equal(t, Change{Kind: ChangeReverted, Id: "a"}, listener.changes[0])
		})
	}
}

func TestCartService_SetQuantityUnknownIdIsNoop(t *testing.T) {
	cs, repo, prompt, _ := newTestCart(t, true)
	assert.NoError(t, cs.SetQuantity("ghost", Absolute("abc")))
	assert.Zero(t, repo.saves)
	assert.Empty(t, prompt.alerted)
}

func TestCartService_SubtotalTracksMutations(t *testing.T) {
	cs, _, _, _ := newTestCart(t, true)
	require.NoError(t, cs.Add(brick("a", "1.10")))
	require.NoError(t, cs.Add(brick("b", "0.35")))
	require.NoError(t, cs.Add(brick("a", "1.10")))
	require.NoError(t, cs.SetQuantity("b", Absolute("4")))
	require.NoError(t, cs.Add(brick("c", "2")))
	require.NoError(t, cs.Remove("c"))

	var want float64
	for _, item := range cs.Items() {
		want += item.Price * float64(item.Quantity)
	}
	assert.InDelta(t, want, cs.Subtotal(), 1e-9)
	assert.InDelta(t, 3.6, cs.Subtotal(), 1e-9)
	assert.Equal(t, 6, cs.Count())
	assert.False(t, math.IsNaN(cs.Subtotal()))
}

func TestCartService_RemoveNeedsConfirmation(t *testing.T) {
	cs, repo, prompt, _ := newTestCart(t, false)
	require.NoError(t, cs.Add(brick("a", "1")))

	err := cs.Remove("a")
	assert.ErrorIs(t, err, models.ErrCancelled)
	assert.Len(t, cs.Items(), 1)
	assert.Equal(t, 1, repo.saves)
	assert.Equal(t, []string{models.MsgConfirmRemove}, prompt.asked)

	prompt.answer = true
	require.NoError(t, cs.Remove("a"))
	assert.Empty(t, cs.Items())
	assert.Equal(t, 2, repo.saves)
}

func TestCartService_ClearNeedsConfirmation(t *testing.T) {
	cs, _, prompt, _ := newTestCart(t, false)
	require.NoError(t, cs.Add(brick("a", "1")))
	require.NoError(t, cs.Add(brick("b", "1")))

	assert.ErrorIs(t, cs.Clear(), models.ErrCancelled)
	assert.Len(t, cs.Items(), 2)

	prompt.answer = true
	require.NoError(t, cs.Clear())
	assert.Empty(t, cs.Items())
	assert.Equal(t, []string{models.MsgConfirmClear, models.MsgConfirmClear}, prompt.asked)
}

func TestCartService_PersistsBeforeNotifying(t *testing.T) {
	var events []string
	store := repository.NewMemoryStore()
	base, _ := repository.NewCartRepository(store, "", nil)
	repo := &countingRepo{CartRepository: base, events: &events}
	cs, err := NewCartService(repo, &stubPrompter{answer: true}, nil)
	require.NoError(t, err)
	listener := &recordingListener{events: &events}
	cs.Subscribe(listener)

	require.NoError(t, cs.Add(brick("a", "1")))
	require.NoError(t, cs.SetQuantity("a", Absolute("3")))
	require.NoError(t, cs.Remove("a"))
	require.NoError(t, cs.Clear())

	assert.Equal(t, []string{
		"save", "render:added",
		"save", "render:quantity",
		"save", "render:removed",
		"save", "render:cleared",
	}, events)
	assert.Equal(t, Change{Kind: ChangeCleared}, listener.changes[3])
}

func TestCartService_FailedSaveKeepsState(t *testing.T) {
	cs, repo, _, _ := newTestCart(t, true)
	require.NoError(t, cs.Add(brick("a", "1")))
	repo.failing = true
	listener := &recordingListener{}
	cs.Subscribe(listener)

	assert.ErrorIs(t, cs.Add(brick("a", "1")), models.ErrServerError)
	item, _ := cs.Item("a")
	assert.Equal(t, 1, item.Quantity)
	assert.Empty(t, listener.changes)
}

func TestCartService_HydratesFromStore(t *testing.T) {
	cs, _, _, store := newTestCart(t, true)
	require.NoError(t, cs.Add(brick("a", "2")))
	require.NoError(t, cs.Add(brick("a", "2")))

	repo, _ := repository.NewCartRepository(store, "", nil)
	again, err := NewCartService(repo, &stubPrompter{}, nil)
	require.NoError(t, err)
	assert.Equal(t, cs.Items(), again.Items())
	assert.Equal(t, 4.0, again.Subtotal())
}

func TestNewCartService_RequiresCollaborators(t *testing.T) {
	repo, _ := repository.NewCartRepository(repository.NewMemoryStore(), "", nil)
	_, err := NewCartService(nil, &stubPrompter{}, nil)
	assert.Error(t, err)
	_, err = NewCartService(repo, nil, nil)
	assert.Error(t, err)
}

func TestQuantityChange_String(t *testing.T) {
	assert.Equal(t, "+1", Delta(1).String())
	assert.Equal(t, "-3", Delta(-3).String())
	assert.Equal(t, `"7"`, Absolute("7").String())
}

package order

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
}

func TestAssignIDs(t *testing.T) {
	o := New()
	it := NewItem("p1", "Widget", 1, 1000)
	it.AddAdjustment(NewAdjustment(AdjustmentPromotion, "promo", -100))
	o.AddItem(it)
	o.AddAdjustment(NewAdjustment(AdjustmentShipping, "Delivery", 500))

	created, _ := AssignIDs(o, sequence())
	require.True(t, created)
	assert.NotEmpty(t, o.ID())
	assert.NotEmpty(t, it.ID())
	for _, a := range o.AdjustmentsRecursively("") {
		assert.NotEmpty(t, a.ID())
	}

	id := o.ID()
	created, _ = AssignIDs(o, sequence())
	assert.False(t, created)
	assert.Equal(t, id, o.ID())
}

func TestAssignIDs_UndoKeepsStoredIDs(t *testing.T) {
	o := New()
	saved := NewItem("p1", "Widget", 1, 1000)
	o.AddItem(saved)
	_, _ = AssignIDs(o, sequence())
	orderID, itemID := o.ID(), saved.ID()

	fresh := NewItem("p2", "Gadget", 1, 500)
	o.AddItem(fresh)
	promo := NewAdjustment(AdjustmentPromotion, "promo", -50)
	o.AddAdjustment(promo)

	created, undo := AssignIDs(o, sequence())
	require.False(t, created)
	require.NotEmpty(t, fresh.ID())
	undo()

	assert.Equal(t, orderID, o.ID())
	assert.Equal(t, itemID, saved.ID())
	assert.Empty(t, fresh.ID())
	assert.Empty(t, promo.ID())
}

func TestAssignIDs_UndoNewOrder(t *testing.T) {
	o := New()
	o.AddItem(NewItem("p1", "Widget", 1, 1000))

	created, undo := AssignIDs(o, sequence())
	require.True(t, created)
	undo()

	assert.Empty(t, o.ID())
	assert.Empty(t, o.Items()[0].ID())

	created, _ = AssignIDs(o, sequence())
	assert.True(t, created, "a retried save inserts again")
}

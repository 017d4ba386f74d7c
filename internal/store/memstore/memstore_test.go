package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
)

func newTicket(subject string) models.Ticket {
	return models.Ticket{
		Subject:   subject,
		UserEmail: "a@x.com",
		Status:    models.TicketOpen,
	}
}

func TestCollectionCRUD(t *testing.T) {
	ctx := context.Background()
	c := New[models.Ticket]("tickets")

	id, err := c.Create(ctx, newTicket("first"))
	require.NoError(t, err)
	require.True(t, models.ObjectID(id).Valid())

	resolved := models.TicketResolved
	version, err := c.Update(ctx, id, models.TicketPatch{Status: &resolved})
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.TicketResolved, list[0].Status)
	assert.Equal(t, int64(2), list[0].Version)

	require.NoError(t, c.Delete(ctx, id))
	err = c.Delete(ctx, id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCollectionRejectsInvalidRecord(t *testing.T) {
	c := New[models.Ticket]("tickets")
	_, err := c.Create(context.Background(), models.Ticket{Subject: "x", UserEmail: "bad", Status: models.TicketOpen})
	assert.ErrorIs(t, err, models.ErrMalformedInput)
	assert.Equal(t, 0, c.Writes())
}

func TestCollectionWatch(t *testing.T) {
	ctx := context.Background()
	c := New("tickets", newTicket("seed"))

	stream, err := c.Watch(ctx)
	require.NoError(t, err)

	first := <-stream.Snapshots()
	require.Len(t, first, 1)
	assert.Equal(t, 1, c.Subscribers())

	_, err = c.Create(ctx, newTicket("second"))
	require.NoError(t, err)

	select {
	case snap := <-stream.Snapshots():
		assert.Len(t, snap, 2)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after create")
	}

	stream.Close()
	assert.Eventually(t, func() bool { return c.Subscribers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCollectionFailNext(t *testing.T) {
	ctx := context.Background()
	c := New[models.Ticket]("tickets")
	c.FailNext(OpCreate, models.NewStoreError(models.StoreNetwork, "tickets", nil))

	_, err := c.Create(ctx, newTicket("x"))
	assert.ErrorIs(t, err, models.ErrStoreNetwork)

	_, err = c.Create(ctx, newTicket("y"))
	assert.NoError(t, err)
	assert.Equal(t, 2, c.Writes())
}

package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentdb/messaging"
)

func TestTransport_PublishDispatch(t *testing.T) {
	tr := NewTransport()
	ctx := context.Background()

	var created, all []string
	require.NoError(t, tr.Subscribe("student.created", messaging.HandlerFunc(func(ctx context.Context, m messaging.IMessage) error {
		created = append(created, m.GetID())
		return nil
	})))
	require.NoError(t, tr.Subscribe(WildcardType, messaging.HandlerFunc(func(ctx context.Context, m messaging.IMessage) error {
		all = append(all, m.GetType())
		return nil
	})))

	m1 := messaging.NewMessage("student.created", nil)
	require.NoError(t, tr.Publish(ctx, m1))
	require.NoError(t, tr.Publish(ctx, messaging.NewMessage("student.deleted", nil)))

	assert.Equal(t, []string{m1.ID}, created)
	assert.Equal(t, []string{"student.created", "student.deleted"}, all)

	stats := tr.Stats()
	assert.True(t, stats.Running)
	assert.Equal(t, 2, stats.HandlerCount)
	assert.Equal(t, []string{"*", "student.created"}, stats.MessageTypes)
	assert.Equal(t, int64(2), stats.Published)
}

func TestTransport_HandlerErrorsJoined(t *testing.T) {
	tr := NewTransport()
	boom := errors.New("boom")
	require.NoError(t, tr.Subscribe("x", messaging.HandlerFunc(func(ctx context.Context, m messaging.IMessage) error {
		return boom
	})))

	err := tr.Publish(context.Background(), messaging.NewMessage("x", nil))
	assert.ErrorIs(t, err, boom)
}

func TestTransport_Closed(t *testing.T) {
	tr := NewTransport()
	require.NoError(t, tr.Close())
	assert.Error(t, tr.Publish(context.Background(), messaging.NewMessage("x", nil)))

	require.NoError(t, tr.Start(context.Background()))
	assert.NoError(t, tr.Publish(context.Background(), messaging.NewMessage("x", nil)))
}

func TestTransport_NilHandler(t *testing.T) {
	assert.Error(t, NewTransport().Subscribe("x", nil))
}

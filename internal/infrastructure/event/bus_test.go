package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New()),
		Data:            "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("commission.accrued")
	bus.Subscribe(handler, "commission.accrued")

	event := newTestEvent("commission.accrued")
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_PublishToMultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	first := newTestHandler("commission.accrued")
	second := newTestHandler("commission.accrued")
	bus.Subscribe(first, "commission.accrued")
	bus.Subscribe(second, "commission.accrued")

	err := bus.Publish(context.Background(), newTestEvent("commission.accrued"))

	require.NoError(t, err)
	assert.Len(t, first.getHandled(), 1)
	assert.Len(t, second.getHandled(), 1)
}

func TestInMemoryEventBus_HandlerErrorDoesNotBlockOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler("commission.reversed")
	failing.setError(errors.New("downstream unavailable"))
	healthy := newTestHandler("commission.reversed")
	bus.Subscribe(failing, "commission.reversed")
	bus.Subscribe(healthy, "commission.reversed")

	err := bus.Publish(context.Background(), newTestEvent("commission.reversed"))

	require.NoError(t, err)
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcard := newTestHandler()
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("referral.attributed")))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("commission.accrued")))

	assert.Len(t, wildcard.getHandled(), 2)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("referral.attributed")
	bus.Subscribe(handler, "referral.attributed")
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("referral.attributed")))
	assert.Empty(t, handler.getHandled())
}

func TestInMemoryEventBus_UnknownEventTypeIsIgnored(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("referral.attributed")
	bus.Subscribe(handler, "referral.attributed")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("referral.linked")))
	assert.Empty(t, handler.getHandled())
}

type panickingHandler struct {
	eventTypes []string
}

func (h *panickingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	panic("handler exploded")
}

func (h *panickingHandler) EventTypes() []string {
	return h.eventTypes
}

func TestInMemoryEventBus_PanickingHandlerIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	bus.Subscribe(&panickingHandler{eventTypes: []string{"commission.accrued"}}, "commission.accrued")
	healthy := newTestHandler("commission.accrued")
	bus.Subscribe(healthy, "commission.accrued")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("commission.accrued")))
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_UnsubscribeRemovesAllSubscriptions(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("commission.accrued", "commission.reversed")
	bus.Subscribe(handler, "commission.accrued", "commission.reversed")
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("commission.accrued")))
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("commission.reversed")))
	assert.Empty(t, handler.getHandled())
}

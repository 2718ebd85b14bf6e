package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/domain/ledger"
	"github.com/partnerly/backend/internal/domain/shared"
	"github.com/partnerly/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newActivityTestEntry(t *testing.T) *ledger.CommissionEntry {
	t.Helper()
	entry, err := ledger.NewAccrual(
		"in_audit_1",
		uuid.New(),
		uuid.New(),
		nil,
		valueobject.MustMoney(1000, valueobject.USD),
		decimal.NewFromFloat(0.10),
		nil, nil,
	)
	require.NoError(t, err)
	return entry
}

func TestLedgerActivityHandler_EventTypes(t *testing.T) {
	handler := NewLedgerActivityHandler(zap.NewNop())

	assert.ElementsMatch(t,
		[]string{ledger.EventTypeCommissionAccrued, ledger.EventTypeCommissionReversed},
		handler.EventTypes())
}

func TestLedgerActivityHandler_HandleAccrued(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewLedgerActivityHandler(zap.New(core))
	entry := newActivityTestEntry(t)

	err := handler.Handle(context.Background(), ledger.NewCommissionAccruedEvent(entry))

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	logged := logs.All()[0]
	assert.Equal(t, "Commission accrued", logged.Message)
	assert.Equal(t, "in_audit_1", logged.ContextMap()["source_invoice_id"])
	assert.Equal(t, int64(100), logged.ContextMap()["commission_amount"])
}

func TestLedgerActivityHandler_HandleReversed(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewLedgerActivityHandler(zap.New(core))
	entry := newActivityTestEntry(t)
	reversal, err := entry.Reversal()
	require.NoError(t, err)

	err = handler.Handle(context.Background(), ledger.NewCommissionReversedEvent(reversal))

	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Commission reversed", logs.All()[0].Message)
}

func TestLedgerActivityHandler_IgnoresOtherEvents(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewLedgerActivityHandler(zap.New(core))

	event := shared.NewBaseDomainEvent("SomethingElse", "Other", uuid.New())
	err := handler.Handle(context.Background(), &event)

	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())
}

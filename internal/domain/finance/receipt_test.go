package finance

import (
	"errors"
	"testing"
	"time"

	"github.com/javila-dev/rojoz/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	t.Run("document fingerprints are content addressed", func(t *testing.T) {
		a := FingerprintDocument([]byte("comprobante de pago"))
		b := FingerprintDocument([]byte("comprobante de pago"))
		c := FingerprintDocument([]byte("otro comprobante"))

		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
		assert.Len(t, a, 64)
	})

	t.Run("fact fingerprints cover sale, amount, payer and timestamp", func(t *testing.T) {
		saleID := uuid.New()
		receivedAt := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		amount := decimal.RequireFromString("120000")

		base := FingerprintFacts(saleID, amount, "Maria Lopez", receivedAt)
		assert.Equal(t, base, FingerprintFacts(saleID, amount, "Maria Lopez", receivedAt))
		assert.NotEqual(t, base, FingerprintFacts(uuid.New(), amount, "Maria Lopez", receivedAt))
		assert.NotEqual(t, base, FingerprintFacts(saleID, decimal.RequireFromString("120001"), "Maria Lopez", receivedAt))
		assert.NotEqual(t, base, FingerprintFacts(saleID, amount, "Pedro Gomez", receivedAt))
		assert.NotEqual(t, base, FingerprintFacts(saleID, amount, "Maria Lopez", receivedAt.Add(time.Minute)))
	})
}

func TestNewPaymentReceipt(t *testing.T) {
	saleID := uuid.New()
	receivedAt := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("starts pending with no surplus", func(t *testing.T) {
		receipt, err := NewPaymentReceipt(saleID, decimal.RequireFromString("120000"),
			"Maria Lopez", receivedAt, FingerprintDocument([]byte("doc")), "receipts/2026/06/abc")
		require.NoError(t, err)

		assert.Equal(t, ReceiptStatusPending, receipt.Status)
		assert.True(t, receipt.CanAllocate())
		assert.True(t, receipt.Surplus.IsZero())
		require.Len(t, receipt.GetDomainEvents(), 1)
		assert.Equal(t, "ReceiptIngested", receipt.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := NewPaymentReceipt(saleID, decimal.Zero, "Maria Lopez", receivedAt, "fp", "")
		assert.Error(t, err)
		_, err = NewPaymentReceipt(saleID, decimal.NewFromInt(-100), "Maria Lopez", receivedAt, "fp", "")
		assert.Error(t, err)
	})

	t.Run("rejects missing fingerprint", func(t *testing.T) {
		_, err := NewPaymentReceipt(saleID, decimal.NewFromInt(100), "Maria Lopez", receivedAt, "", "")
		assert.Error(t, err)
	})
}

func TestPaymentReceipt_MarkAllocated(t *testing.T) {
	saleID := uuid.New()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pending to allocated exactly once", func(t *testing.T) {
		receipt := createPendingReceipt(t, saleID, "1000")

		require.NoError(t, receipt.MarkAllocated(decimal.NewFromInt(100), now))
		assert.Equal(t, ReceiptStatusAllocated, receipt.Status)
		assert.Equal(t, "100", receipt.Surplus.String())
		assert.NotNil(t, receipt.AllocatedAt)

		err := receipt.MarkAllocated(decimal.Zero, now)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.True(t, errors.As(err, &domainErr))
		assert.Equal(t, shared.ErrCodeAlreadyAllocated, domainErr.Code)
	})

	t.Run("surplus cannot exceed the amount", func(t *testing.T) {
		receipt := createPendingReceipt(t, saleID, "1000")
		assert.Error(t, receipt.MarkAllocated(decimal.NewFromInt(2000), now))
	})
}

func TestPaymentReceipt_ConsumeSurplus(t *testing.T) {
	saleID := uuid.New()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	receipt := createPendingReceipt(t, saleID, "1000")
	require.NoError(t, receipt.MarkAllocated(decimal.NewFromInt(300), now))

	require.NoError(t, receipt.ConsumeSurplus(decimal.NewFromInt(200)))
	assert.Equal(t, "100", receipt.Surplus.String())

	assert.Error(t, receipt.ConsumeSurplus(decimal.NewFromInt(500)))
	assert.Error(t, receipt.ConsumeSurplus(decimal.Zero))
}

func TestPaymentReceipt_Void(t *testing.T) {
	saleID := uuid.New()

	t.Run("voiding clears surplus and records the reason", func(t *testing.T) {
		receipt := createPendingReceipt(t, saleID, "1000")
		require.NoError(t, receipt.MarkAllocated(decimal.NewFromInt(300), time.Now().UTC()))
		receipt.ClearDomainEvents()

		require.NoError(t, receipt.Void("bank reversal"))
		assert.True(t, receipt.IsVoided())
		assert.True(t, receipt.Surplus.IsZero())
		assert.Equal(t, "bank reversal", receipt.VoidReason)
		require.Len(t, receipt.GetDomainEvents(), 1)
		assert.Equal(t, "ReceiptVoided", receipt.GetDomainEvents()[0].EventType())
	})

	t.Run("double void is rejected", func(t *testing.T) {
		receipt := createPendingReceipt(t, saleID, "1000")
		require.NoError(t, receipt.Void("bank reversal"))
		assert.Error(t, receipt.Void("again"))
	})

	t.Run("requires a reason", func(t *testing.T) {
		receipt := createPendingReceipt(t, saleID, "1000")
		assert.Error(t, receipt.Void(""))
	})
}

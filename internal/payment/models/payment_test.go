package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
)

func TestNewPaymentRecord(t *testing.T) {
	payer := id.PrincipalID(uuid.New())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("creates pending intent at fixed price", func(t *testing.T) {
		rec, err := NewPaymentRecord(payer, 42, now)
		require.NoError(t, err)
		assert.Equal(t, payer, rec.Payer)
		assert.Equal(t, id.Memo(42), rec.Memo)
		assert.Equal(t, now, rec.Timestamp)
		assert.Equal(t, MintPriceE8s, rec.Amount)
		assert.True(t, rec.IsPending())
	})

	t.Run("rejects nil payer", func(t *testing.T) {
		_, err := NewPaymentRecord(id.PrincipalID{}, 42, now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestPaymentRecordComplete(t *testing.T) {
	rec, err := NewPaymentRecord(id.PrincipalID(uuid.New()), 7, time.Now())
	require.NoError(t, err)

	require.NoError(t, rec.Complete())
	assert.True(t, rec.IsCompleted())

	err = rec.Complete()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePaymentConsumed))
	assert.True(t, rec.IsCompleted(), "completed never reverts")
}

func TestPaymentStatus(t *testing.T) {
	t.Run("only pending to completed is legal", func(t *testing.T) {
		assert.True(t, PaymentStatusPending.CanTransitionTo(PaymentStatusCompleted))
		assert.False(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusPending))
		assert.False(t, PaymentStatusCompleted.CanTransitionTo(PaymentStatusCompleted))
		assert.False(t, PaymentStatusPending.CanTransitionTo(PaymentStatusPending))
	})

	t.Run("parse rejects unknown values", func(t *testing.T) {
		s, err := ParsePaymentStatus("completed")
		require.NoError(t, err)
		assert.Equal(t, PaymentStatusCompleted, s)

		_, err = ParsePaymentStatus("refunded")
		require.Error(t, err)
		assert.False(t, PaymentStatus("refunded").IsValid())
	})
}

func TestIsPayer(t *testing.T) {
	alice := id.PrincipalID(uuid.New())
	bob := id.PrincipalID(uuid.New())
	rec, err := NewPaymentRecord(alice, 1, time.Now())
	require.NoError(t, err)

	assert.True(t, rec.IsPayer(alice))
	assert.False(t, rec.IsPayer(bob))
}

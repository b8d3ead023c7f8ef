package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/allisson/signflow/internal/errors"
)

func TestEnvelope_Mutable(t *testing.T) {
	tests := []struct {
		status EnvelopeStatus
		want   bool
	}{
		{EnvelopeStatusDraft, true},
		{EnvelopeStatusPending, false},
		{EnvelopeStatusCompleted, false},
		{EnvelopeStatusDeclined, false},
		{EnvelopeStatusExpired, false},
	}

	for _, tt := range tests {
		e := &Envelope{Status: tt.status}
		assert.Equal(t, tt.want, e.Mutable(), string(tt.status))
	}
}

func TestEnvelope_Expired(t *testing.T) {
	now := time.Now().UTC()

	t.Run("no deadline never expires", func(t *testing.T) {
		e := &Envelope{}
		assert.False(t, e.Expired(now))
	})

	t.Run("future deadline", func(t *testing.T) {
		future := now.Add(time.Hour)
		e := &Envelope{ExpiresAt: &future}
		assert.False(t, e.Expired(now))
	})

	t.Run("past deadline", func(t *testing.T) {
		past := now.Add(-time.Hour)
		e := &Envelope{ExpiresAt: &past}
		assert.True(t, e.Expired(now))
	})
}

func TestEnvelope_ReminderDue(t *testing.T) {
	now := time.Now().UTC()

	t.Run("disabled reminders are never due", func(t *testing.T) {
		e := &Envelope{ReminderEnabled: false, CreatedAt: now.Add(-30 * 24 * time.Hour)}
		assert.False(t, e.ReminderDue(now))
	})

	t.Run("last reminder two days ago with three day interval", func(t *testing.T) {
		last := now.Add(-48 * time.Hour)
		e := &Envelope{
			ReminderEnabled:  true,
			ReminderInterval: ReminderInterval3Days,
			LastReminderAt:   &last,
		}
		assert.False(t, e.ReminderDue(now))
	})

	t.Run("last reminder four days ago with three day interval", func(t *testing.T) {
		last := now.Add(-4 * 24 * time.Hour)
		e := &Envelope{
			ReminderEnabled:  true,
			ReminderInterval: ReminderInterval3Days,
			LastReminderAt:   &last,
		}
		assert.True(t, e.ReminderDue(now))
	})

	t.Run("never reminded measures from creation", func(t *testing.T) {
		e := &Envelope{
			ReminderEnabled:  true,
			ReminderInterval: ReminderInterval1Day,
			CreatedAt:        now.Add(-25 * time.Hour),
		}
		assert.True(t, e.ReminderDue(now))
	})
}

func TestReminderInterval_Duration(t *testing.T) {
	assert.Equal(t, 24*time.Hour, ReminderInterval1Day.Duration())
	assert.Equal(t, 48*time.Hour, ReminderInterval2Days.Duration())
	assert.Equal(t, 72*time.Hour, ReminderInterval3Days.Duration())
	assert.Equal(t, 7*24*time.Hour, ReminderInterval7Days.Duration())
	// Unknown values fall back to the default interval
	assert.Equal(t, 72*time.Hour, ReminderInterval("bogus").Duration())
}

func TestField_ValueFills(t *testing.T) {
	t.Run("checkbox accepts only the canonical marker", func(t *testing.T) {
		f := &Field{Type: FieldTypeCheckbox}
		assert.True(t, f.ValueFills("true"))
		assert.False(t, f.ValueFills("yes"))
		assert.False(t, f.ValueFills("True"))
		assert.False(t, f.ValueFills("1"))
		assert.False(t, f.ValueFills(""))
	})

	t.Run("text-like fields reject whitespace-only values", func(t *testing.T) {
		for _, ft := range []FieldType{FieldTypeSignature, FieldTypeInitials, FieldTypeDate, FieldTypeText, FieldTypeName, FieldTypeEmail} {
			f := &Field{Type: ft}
			assert.True(t, f.ValueFills("value"), string(ft))
			assert.False(t, f.ValueFills(""), string(ft))
			assert.False(t, f.ValueFills("   \t"), string(ft))
		}
	})
}

func TestField_Filled(t *testing.T) {
	f := &Field{Type: FieldTypeText}
	assert.False(t, f.Filled())

	blank := "   "
	f.Value = &blank
	assert.False(t, f.Filled())

	v := "John Doe"
	f.Value = &v
	assert.True(t, f.Filled())
}

func TestSignerStatus_Terminal(t *testing.T) {
	assert.False(t, SignerStatusPending.Terminal())
	assert.False(t, SignerStatusSent.Terminal())
	assert.False(t, SignerStatusViewed.Terminal())
	assert.True(t, SignerStatusSigned.Terminal())
	assert.True(t, SignerStatusDeclined.Terminal())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}

func TestColorForOrder(t *testing.T) {
	first := ColorForOrder(0)
	assert.NotEmpty(t, first)
	// Colors rotate
	assert.Equal(t, first, ColorForOrder(6))
	assert.NotEqual(t, first, ColorForOrder(1))
	// Negative order is clamped
	assert.Equal(t, first, ColorForOrder(-1))
}

func TestMissingRequiredFieldsError(t *testing.T) {
	id1 := uuid.Must(uuid.NewV7())
	id2 := uuid.Must(uuid.NewV7())
	err := &MissingRequiredFieldsError{FieldIDs: []uuid.UUID{id1, id2}}

	assert.Contains(t, err.Error(), id1.String())
	assert.Contains(t, err.Error(), id2.String())
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestWorkflowErrors_MatchSentinels(t *testing.T) {
	assert.ErrorIs(t, ErrEnvelopeNotFound, apperrors.ErrNotFound)
	assert.ErrorIs(t, ErrEnvelopeNotDraft, apperrors.ErrInvalidState)
	assert.ErrorIs(t, ErrAlreadySent, apperrors.ErrInvalidState)
	assert.ErrorIs(t, ErrDuplicateSigner, apperrors.ErrConflict)
	assert.ErrorIs(t, ErrAlreadySigned, apperrors.ErrConflict)
	assert.ErrorIs(t, ErrTwoFACodeInvalid, apperrors.ErrUnauthorized)
}

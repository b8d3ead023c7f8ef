package usecase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/signflow/internal/audit/domain"
	"github.com/allisson/signflow/internal/envelope/domain"
	notificationDomain "github.com/allisson/signflow/internal/notification/domain"
)

func createSentEnvelope(
	t *testing.T,
	env *testEnv,
	ownerID uuid.UUID,
	signerInputs ...SignerInput,
) (*domain.Envelope, []*domain.Signer, []*domain.Field) {
	t.Helper()
	envelope, signers, fields := createDraftEnvelope(t, env, ownerID, signerInputs...)
	require.NoError(t, env.envelopeUC.Send(context.Background(), ownerID, envelope.ID))
	return envelope, signers, fields
}

func countAction(actions []auditDomain.Action, action auditDomain.Action) int {
	count := 0
	for _, a := range actions {
		if a == action {
			count++
		}
	}
	return count
}

func TestSigningUseCaseViewByToken(t *testing.T) {
	ctx := context.Background()

	t.Run("marks first view and returns the signer working set", func(t *testing.T) {
		env := newTestEnv(t)
		envelope, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})

		view, err := env.signingUC.ViewByToken(ctx, signers[0].Token, "203.0.113.9", "test-agent")
		require.NoError(t, err)
		assert.Equal(t, envelope.ID, view.Envelope.ID)
		assert.Equal(t, domain.SignerStatusViewed, view.Signer.Status)
		require.Len(t, view.Fields, 1)
		assert.Equal(t, fields[0].ID, view.Fields[0].ID)

		stored, err := env.signerRepo.GetByID(ctx, signers[0].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SignerStatusViewed, stored.Status)

		assert.Contains(t, env.auditRepo.actions(envelope.ID), auditDomain.ActionViewed)
	})

	t.Run("rejects unknown tokens", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.signingUC.ViewByToken(ctx, "no-such-token", "", "")
		assert.ErrorIs(t, err, domain.ErrSignerNotFound)
	})

	t.Run("rejects envelopes still in draft", func(t *testing.T) {
		env := newTestEnv(t)
		_, signers, _ := createDraftEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})

		_, err := env.signingUC.ViewByToken(ctx, signers[0].Token, "", "")
		assert.ErrorIs(t, err, domain.ErrEnvelopeNotPending)
	})
}

func TestSigningUseCaseLazyExpiry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	envelope, signers, _ := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
		SignerInput{Email: "alice@example.com"})

	stored, err := env.envelopeRepo.GetByID(ctx, envelope.ID)
	require.NoError(t, err)
	past := time.Now().UTC().Add(-time.Hour)
	stored.ExpiresAt = &past
	require.NoError(t, env.envelopeRepo.Update(ctx, stored))

	_, err = env.signingUC.ViewByToken(ctx, signers[0].Token, "", "")
	assert.ErrorIs(t, err, domain.ErrEnvelopeNotPending)

	expired, err := env.envelopeRepo.GetByID(ctx, envelope.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnvelopeStatusExpired, expired.Status)

	// A second access finds the envelope already expired and must not append
	// another ledger entry.
	_, err = env.signingUC.ViewByToken(ctx, signers[0].Token, "", "")
	assert.ErrorIs(t, err, domain.ErrEnvelopeNotPending)
	assert.Equal(t, 1, countAction(env.auditRepo.actions(envelope.ID), auditDomain.ActionExpired))
}

func TestSigningUseCaseOpenNotification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	envelope, signers, _ := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
		SignerInput{Email: "alice@example.com"})

	require.NoError(t, env.signingUC.OpenNotification(ctx, signers[0].Token, "203.0.113.9", "test-agent"))

	stored, err := env.signerRepo.GetByID(ctx, signers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SignerStatusSent, stored.Status)

	assert.Contains(t, env.auditRepo.actions(envelope.ID), auditDomain.ActionOpenedNotification)
}

func TestSigningUseCaseStartSigning(t *testing.T) {
	ctx := context.Background()

	t.Run("without phone verification no code is sent", func(t *testing.T) {
		env := newTestEnv(t)
		_, signers, _ := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})
		before := len(env.dispatcher.sent())

		result, err := env.signingUC.StartSigning(ctx, signers[0].Token, "", "")
		require.NoError(t, err)
		assert.False(t, result.TwoFARequired)
		assert.Len(t, env.dispatcher.sent(), before)
	})

	t.Run("with phone verification a code is generated and dispatched", func(t *testing.T) {
		env := newTestEnv(t)
		envelope, signers, _ := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com", Phone2FAEnabled: true, Phone2FANumber: "+15550100"})

		result, err := env.signingUC.StartSigning(ctx, signers[0].Token, "", "")
		require.NoError(t, err)
		assert.True(t, result.TwoFARequired)

		messages := env.dispatcher.sent()
		last := messages[len(messages)-1]
		assert.Equal(t, "+15550100", last.To)
		assert.Equal(t, notificationDomain.TemplateTwoFactorCode, last.Template)
		assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), last.Code)

		stored, err := env.signerRepo.GetByID(ctx, signers[0].ID)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.TwoFACodeHash)
		require.NotNil(t, stored.TwoFACodeExpiresAt)
		assert.True(t, stored.TwoFACodeExpiresAt.After(time.Now().UTC()))

		assert.Contains(t, env.auditRepo.actions(envelope.ID), auditDomain.ActionStartedSigning)
	})
}

func TestSigningUseCaseCompleteSigning(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects completion while required fields are empty", func(t *testing.T) {
		env := newTestEnv(t)
		_, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})

		_, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{Token: signers[0].Token})

		var missing *domain.MissingRequiredFieldsError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []uuid.UUID{fields[0].ID}, missing.FieldIDs)
	})

	t.Run("whitespace-only values do not fill required fields", func(t *testing.T) {
		env := newTestEnv(t)
		_, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})

		_, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:  signers[0].Token,
			Values: map[uuid.UUID]string{fields[0].ID: "   "},
		})

		var missing *domain.MissingRequiredFieldsError
		require.True(t, errors.As(err, &missing))
	})

	t.Run("checkboxes accept only the canonical true marker", func(t *testing.T) {
		env := newTestEnv(t)
		ownerID := uuid.Must(uuid.NewV7())
		envelope, signers, _ := createDraftEnvelope(t, env, ownerID, SignerInput{Email: "alice@example.com"})
		fields, err := env.envelopeUC.SetFields(ctx, ownerID, envelope.ID, []FieldInput{
			{SignerID: signers[0].ID, Type: domain.FieldTypeCheckbox, X: 0.1, Y: 0.1, Width: 0.03, Height: 0.03, Required: true},
		})
		require.NoError(t, err)
		require.NoError(t, env.envelopeUC.Send(ctx, ownerID, envelope.ID))

		_, err = env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:  signers[0].Token,
			Values: map[uuid.UUID]string{fields[0].ID: "yes"},
		})
		var missing *domain.MissingRequiredFieldsError
		require.True(t, errors.As(err, &missing))

		result, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:  signers[0].Token,
			Values: map[uuid.UUID]string{fields[0].ID: domain.CheckboxTrueMarker},
		})
		require.NoError(t, err)
		assert.True(t, result.AllCompleted)
	})

	t.Run("rejects values for another signer's fields", func(t *testing.T) {
		env := newTestEnv(t)
		_, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"},
			SignerInput{Email: "bob@example.com"},
		)

		// fields[1] belongs to bob
		_, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token: signers[0].Token,
			Values: map[uuid.UUID]string{
				fields[0].ID: "signed:alice",
				fields[1].ID: "signed:bob",
			},
		})
		assert.ErrorIs(t, err, domain.ErrSignerNotFound)
	})

	t.Run("records values, proof and finalizes when last", func(t *testing.T) {
		env := newTestEnv(t)
		envelope, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})

		result, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:     signers[0].Token,
			Values:    map[uuid.UUID]string{fields[0].ID: "signed:alice"},
			IPAddress: "203.0.113.9",
			UserAgent: "test-agent",
		})
		require.NoError(t, err)
		assert.True(t, result.AllCompleted)
		assert.Len(t, result.SignatureProof, 64)

		field, err := env.fieldRepo.GetByID(ctx, fields[0].ID)
		require.NoError(t, err)
		require.NotNil(t, field.Value)
		assert.Equal(t, "signed:alice", *field.Value)
		assert.NotNil(t, field.FilledAt)

		stored, err := env.signerRepo.GetByID(ctx, signers[0].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SignerStatusSigned, stored.Status)
		assert.NotNil(t, stored.SignedAt)
		assert.Equal(t, "203.0.113.9", stored.IPAddress)
		assert.Empty(t, stored.TwoFACodeHash)

		assert.Equal(t, 1, env.finalizer.count())
		assert.Contains(t, env.auditRepo.actions(envelope.ID), auditDomain.ActionSigned)
	})

	t.Run("rejects signing twice", func(t *testing.T) {
		env := newTestEnv(t)
		_, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})

		input := CompleteSigningInput{
			Token:  signers[0].Token,
			Values: map[uuid.UUID]string{fields[0].ID: "signed:alice"},
		}
		_, err := env.signingUC.CompleteSigning(ctx, input)
		require.NoError(t, err)

		_, err = env.signingUC.CompleteSigning(ctx, input)
		assert.ErrorIs(t, err, domain.ErrAlreadySigned)
	})

	t.Run("finalizer failures do not surface to the signer", func(t *testing.T) {
		env := newTestEnv(t)
		env.finalizer.err = errors.New("assembler unavailable")
		_, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})

		result, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:  signers[0].Token,
			Values: map[uuid.UUID]string{fields[0].ID: "signed:alice"},
		})
		require.NoError(t, err)
		assert.True(t, result.AllCompleted)
		assert.Equal(t, 1, env.finalizer.count())
	})
}

func TestSigningUseCaseCompleteSigningTwoFactor(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*testEnv, *domain.Signer, *domain.Field, string) {
		t.Helper()
		env := newTestEnv(t)
		_, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com", Phone2FAEnabled: true, Phone2FANumber: "+15550100"})

		_, err := env.signingUC.StartSigning(ctx, signers[0].Token, "", "")
		require.NoError(t, err)

		messages := env.dispatcher.sent()
		code := messages[len(messages)-1].Code
		require.NotEmpty(t, code)
		return env, signers[0], fields[0], code
	}

	t.Run("rejects a missing or wrong code", func(t *testing.T) {
		env, signer, field, _ := setup(t)

		_, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:  signer.Token,
			Values: map[uuid.UUID]string{field.ID: "signed:alice"},
		})
		assert.ErrorIs(t, err, domain.ErrTwoFACodeInvalid)

		_, err = env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:     signer.Token,
			Values:    map[uuid.UUID]string{field.ID: "signed:alice"},
			TwoFACode: "000000",
		})
		assert.ErrorIs(t, err, domain.ErrTwoFACodeInvalid)
	})

	t.Run("rejects an expired code", func(t *testing.T) {
		env, signer, field, code := setup(t)

		stored, err := env.signerRepo.GetByID(ctx, signer.ID)
		require.NoError(t, err)
		past := time.Now().UTC().Add(-time.Minute)
		stored.TwoFACodeExpiresAt = &past
		require.NoError(t, env.signerRepo.Update(ctx, stored))

		_, err = env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:     signer.Token,
			Values:    map[uuid.UUID]string{field.ID: "signed:alice"},
			TwoFACode: code,
		})
		assert.ErrorIs(t, err, domain.ErrTwoFACodeInvalid)
	})

	t.Run("accepts the dispatched code", func(t *testing.T) {
		env, signer, field, code := setup(t)

		result, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
			Token:     signer.Token,
			Values:    map[uuid.UUID]string{field.ID: "signed:alice"},
			TwoFACode: code,
		})
		require.NoError(t, err)
		assert.True(t, result.AllCompleted)

		stored, err := env.signerRepo.GetByID(ctx, signer.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.TwoFACodeHash)
		assert.Nil(t, stored.TwoFACodeExpiresAt)
	})
}

func TestSigningUseCaseCompleteSigningTwoSigners(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	envelope, signers, fields := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
		SignerInput{Email: "alice@example.com"},
		SignerInput{Email: "bob@example.com"},
	)

	first, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
		Token:  signers[0].Token,
		Values: map[uuid.UUID]string{fields[0].ID: "signed:alice"},
	})
	require.NoError(t, err)
	assert.False(t, first.AllCompleted)
	assert.Equal(t, 0, env.finalizer.count())

	stored, err := env.envelopeRepo.GetByID(ctx, envelope.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnvelopeStatusPending, stored.Status)

	second, err := env.signingUC.CompleteSigning(ctx, CompleteSigningInput{
		Token:  signers[1].Token,
		Values: map[uuid.UUID]string{fields[1].ID: "signed:bob"},
	})
	require.NoError(t, err)
	assert.True(t, second.AllCompleted)
	assert.Equal(t, 1, env.finalizer.count())
	assert.NotEqual(t, first.SignatureProof, second.SignatureProof)
}

func TestSigningUseCaseDecline(t *testing.T) {
	ctx := context.Background()

	t.Run("declines the envelope for everyone", func(t *testing.T) {
		env := newTestEnv(t)
		envelope, signers, _ := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"},
			SignerInput{Email: "bob@example.com"},
		)

		err := env.signingUC.Decline(ctx, DeclineInput{
			Token:     signers[0].Token,
			Reason:    "wrong terms",
			IPAddress: "203.0.113.9",
		})
		require.NoError(t, err)

		storedEnvelope, err := env.envelopeRepo.GetByID(ctx, envelope.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EnvelopeStatusDeclined, storedEnvelope.Status)

		storedSigner, err := env.signerRepo.GetByID(ctx, signers[0].ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SignerStatusDeclined, storedSigner.Status)
		assert.Equal(t, "wrong terms", storedSigner.DeclineReason)
		assert.NotNil(t, storedSigner.DeclinedAt)

		// The other signer can no longer act
		_, err = env.signingUC.ViewByToken(ctx, signers[1].Token, "", "")
		assert.ErrorIs(t, err, domain.ErrEnvelopeNotPending)

		assert.Contains(t, env.auditRepo.actions(envelope.ID), auditDomain.ActionDeclined)
	})

	t.Run("rejects declining twice", func(t *testing.T) {
		env := newTestEnv(t)
		_, signers, _ := createSentEnvelope(t, env, uuid.Must(uuid.NewV7()),
			SignerInput{Email: "alice@example.com"})

		require.NoError(t, env.signingUC.Decline(ctx, DeclineInput{Token: signers[0].Token}))

		err := env.signingUC.Decline(ctx, DeclineInput{Token: signers[0].Token})
		assert.ErrorIs(t, err, domain.ErrEnvelopeNotPending)
	})
}

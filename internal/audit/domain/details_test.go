package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDetails(t *testing.T) {
	t.Run("nil details encode as nil", func(t *testing.T) {
		data, err := EncodeDetails(nil)
		assert.NoError(t, err)
		assert.Nil(t, data)
	})

	t.Run("typed details round-trip through encoding", func(t *testing.T) {
		original := SignedDetails{
			SignerEmail:    "alice@example.com",
			SignatureProof: "abc123",
			AllCompleted:   true,
		}

		data, err := EncodeDetails(original)
		require.NoError(t, err)

		decoded, err := DecodeDetails(ActionSigned, data)
		require.NoError(t, err)
		assert.Equal(t, original, decoded)
	})
}

func TestDecodeDetails(t *testing.T) {
	t.Run("empty payload decodes to nil", func(t *testing.T) {
		decoded, err := DecodeDetails(ActionCreated, nil)
		assert.NoError(t, err)
		assert.Nil(t, decoded)
	})

	t.Run("each known action decodes to its typed shape", func(t *testing.T) {
		cases := []struct {
			action  Action
			details Details
		}{
			{ActionSent, SentDetails{SignerCount: 2, FieldCount: 4}},
			{ActionDeclined, DeclinedDetails{SignerEmail: "bob@example.com", Reason: "wrong terms"}},
			{ActionCompleted, CompletedDetails{FinalDocumentHash: "deadbeef", SignerCount: 2}},
			{ActionReminderSent, ReminderSentDetails{SignerEmail: "bob@example.com"}},
			{ActionLinksGenerated, LinksGeneratedDetails{SignerCount: 3}},
			{ActionEdited, EditedDetails{What: "fields"}},
			{ActionDownloaded, DownloadedDetails{Document: "final"}},
		}

		for _, tc := range cases {
			data, err := EncodeDetails(tc.details)
			require.NoError(t, err, string(tc.action))

			decoded, err := DecodeDetails(tc.action, data)
			require.NoError(t, err, string(tc.action))
			assert.Equal(t, tc.details, decoded, string(tc.action))
		}
	})

	t.Run("unknown action falls back to generic details", func(t *testing.T) {
		decoded, err := DecodeDetails(Action("archived"), []byte(`{"archive_id":"a1"}`))
		require.NoError(t, err)

		generic, ok := decoded.(GenericDetails)
		require.True(t, ok)
		assert.Equal(t, "a1", generic["archive_id"])
	})

	t.Run("degraded completion carries error instead of hash", func(t *testing.T) {
		data, err := EncodeDetails(CompletedDetails{SignerCount: 2, Error: "pdf assembly failed"})
		require.NoError(t, err)

		decoded, err := DecodeDetails(ActionCompleted, data)
		require.NoError(t, err)

		completed, ok := decoded.(CompletedDetails)
		require.True(t, ok)
		assert.Empty(t, completed.FinalDocumentHash)
		assert.Equal(t, "pdf assembly failed", completed.Error)
	})
}

func TestValidAction(t *testing.T) {
	known := []Action{
		ActionCreated, ActionSent, ActionViewed, ActionOpenedNotification,
		ActionStartedSigning, ActionSigned, ActionDeclined, ActionCompleted,
		ActionDownloaded, ActionReminderSent, ActionExpired,
		ActionLinksGenerated, ActionEdited,
	}
	for _, a := range known {
		assert.True(t, ValidAction(a), string(a))
	}
	assert.False(t, ValidAction(Action("archived")))
}

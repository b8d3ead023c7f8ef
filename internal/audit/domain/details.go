package domain

import (
	"encoding/json"

	"github.com/allisson/signflow/internal/errors"
)

// Details is the action-specific payload on an audit entry. Each action kind
// has its own payload shape; entries whose action (or shape) is unknown to
// the reading code decode as GenericDetails so old readers never fail on new
// writers.
type Details interface {
	isDetails()
}

// SentDetails accompanies the sent action.
type SentDetails struct {
	SignerCount int `json:"signer_count"`
	FieldCount  int `json:"field_count"`
}

// SignedDetails accompanies the signed action. SignatureProof is the
// deterministic hash binding the signature to document, signer, and context;
// recomputing it from the other recorded inputs must reproduce this value.
type SignedDetails struct {
	SignerEmail    string `json:"signer_email"`
	SignatureProof string `json:"signature_proof"`
	AllCompleted   bool   `json:"all_completed"`
}

// DeclinedDetails accompanies the declined action.
type DeclinedDetails struct {
	SignerEmail string `json:"signer_email"`
	Reason      string `json:"reason,omitempty"`
}

// CompletedDetails accompanies the completed action. Exactly one of
// FinalDocumentHash or Error is set: the degraded finalization path records
// the failure in place of the hash.
type CompletedDetails struct {
	FinalDocumentHash string `json:"final_document_hash,omitempty"`
	SignerCount       int    `json:"signer_count"`
	Error             string `json:"error,omitempty"`
}

// ReminderSentDetails accompanies the reminder_sent action, one per signer
// successfully notified in a reminder round.
type ReminderSentDetails struct {
	SignerEmail string `json:"signer_email"`
}

// LinksGeneratedDetails accompanies the links_generated action.
type LinksGeneratedDetails struct {
	SignerCount int `json:"signer_count"`
}

// EditedDetails accompanies the edited action.
type EditedDetails struct {
	What string `json:"what"`
}

// DownloadedDetails accompanies the downloaded action.
type DownloadedDetails struct {
	Document string `json:"document"`
}

// GenericDetails holds the raw payload of entries whose action kind is not
// known to this version of the code.
type GenericDetails map[string]any

func (SentDetails) isDetails()           {}
func (SignedDetails) isDetails()         {}
func (DeclinedDetails) isDetails()       {}
func (CompletedDetails) isDetails()      {}
func (ReminderSentDetails) isDetails()   {}
func (LinksGeneratedDetails) isDetails() {}
func (EditedDetails) isDetails()         {}
func (DownloadedDetails) isDetails()     {}
func (GenericDetails) isDetails()        {}

// EncodeDetails serializes a details payload for storage. Nil details encode
// as nil (stored as database NULL).
func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode audit details")
	}
	return data, nil
}

// DecodeDetails deserializes a stored payload into the typed shape for the
// given action. Unknown actions, and any payload that fails to decode into
// its typed shape, fall back to GenericDetails rather than erroring so newer
// writers never break older readers.
func DecodeDetails(action Action, data []byte) (Details, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var typed Details
	switch action {
	case ActionSent:
		typed = &SentDetails{}
	case ActionSigned:
		typed = &SignedDetails{}
	case ActionDeclined:
		typed = &DeclinedDetails{}
	case ActionCompleted:
		typed = &CompletedDetails{}
	case ActionReminderSent:
		typed = &ReminderSentDetails{}
	case ActionLinksGenerated:
		typed = &LinksGeneratedDetails{}
	case ActionEdited:
		typed = &EditedDetails{}
	case ActionDownloaded:
		typed = &DownloadedDetails{}
	default:
		return decodeGeneric(data)
	}

	if err := json.Unmarshal(data, typed); err != nil {
		return decodeGeneric(data)
	}

	switch v := typed.(type) {
	case *SentDetails:
		return *v, nil
	case *SignedDetails:
		return *v, nil
	case *DeclinedDetails:
		return *v, nil
	case *CompletedDetails:
		return *v, nil
	case *ReminderSentDetails:
		return *v, nil
	case *LinksGeneratedDetails:
		return *v, nil
	case *EditedDetails:
		return *v, nil
	case *DownloadedDetails:
		return *v, nil
	}
	return decodeGeneric(data)
}

func decodeGeneric(data []byte) (Details, error) {
	var generic GenericDetails
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, errors.Wrap(err, "failed to decode audit details")
	}
	return generic, nil
}

// Package http provides HTTP handlers for envelope and signing operations.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/signflow/internal/envelope/http/dto"
	"github.com/allisson/signflow/internal/envelope/usecase"
	apperrors "github.com/allisson/signflow/internal/errors"
	"github.com/allisson/signflow/internal/httputil"
	customValidation "github.com/allisson/signflow/internal/validation"
)

// OwnerIDHeader carries the authenticated account identity. Requests are
// authenticated upstream; the handler only requires the header to be a
// well-formed UUID.
const OwnerIDHeader = "X-User-ID"

// EnvelopeHandler handles owner-facing envelope HTTP requests.
type EnvelopeHandler struct {
	envelopeUseCase usecase.EnvelopeUseCase
	logger          *slog.Logger
}

// NewEnvelopeHandler creates a new EnvelopeHandler.
func NewEnvelopeHandler(envelopeUseCase usecase.EnvelopeUseCase, logger *slog.Logger) *EnvelopeHandler {
	return &EnvelopeHandler{
		envelopeUseCase: envelopeUseCase,
		logger:          logger,
	}
}

// ownerID extracts the authenticated owner identity from the request headers.
// Writes a 401 response and returns false when the header is missing or
// malformed.
func (h *EnvelopeHandler) ownerID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetHeader(OwnerIDHeader)
	if raw == "" {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "malformed user id"), h.logger)
		return uuid.Nil, false
	}

	return id, true
}

// envelopeID extracts the envelope ID from the URL parameter. Writes a 422
// response and returns false when it is not a well-formed UUID.
func (h *EnvelopeHandler) envelopeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("invalid envelope id: %w", err), h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// CreateHandler creates a draft envelope around an uploaded document.
// POST /v1/envelopes
// Returns 201 Created with the envelope.
func (h *EnvelopeHandler) CreateHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req dto.CreateEnvelopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	envelope, err := h.envelopeUseCase.Create(c.Request.Context(), dto.ToCreateEnvelopeInput(ownerID, req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapEnvelopeToResponse(envelope))
}

// GetHandler retrieves an envelope with its signers and fields.
// GET /v1/envelopes/:id
// Returns 200 OK with the envelope detail.
func (h *EnvelopeHandler) GetHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	detail, err := h.envelopeUseCase.Get(c.Request.Context(), ownerID, envelopeID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDetailToResponse(detail))
}

// GetBySlugHandler retrieves an envelope by its shareable slug.
// GET /v1/envelopes/slug/:slug
// Returns 200 OK with the envelope detail.
func (h *EnvelopeHandler) GetBySlugHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	slug := c.Param("slug")
	if slug == "" {
		httputil.HandleValidationErrorGin(c, fmt.Errorf("slug cannot be empty"), h.logger)
		return
	}

	detail, err := h.envelopeUseCase.GetBySlug(c.Request.Context(), ownerID, slug)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDetailToResponse(detail))
}

// ListHandler retrieves the owner's envelopes newest-first.
// GET /v1/envelopes?offset=0&limit=50
// Returns 200 OK with the envelope list.
func (h *EnvelopeHandler) ListHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	envelopes, err := h.envelopeUseCase.List(c.Request.Context(), ownerID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"envelopes": dto.MapEnvelopesToResponse(envelopes)})
}

// AddSignerHandler attaches a signer to a draft envelope.
// POST /v1/envelopes/:id/signers
// Returns 201 Created with the signer.
func (h *EnvelopeHandler) AddSignerHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req dto.SignerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	signer, err := h.envelopeUseCase.AddSigner(c.Request.Context(), ownerID, envelopeID, dto.ToSignerInput(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSignerToResponse(signer))
}

// ReplaceSignersHandler swaps the whole signer set of a draft envelope.
// Previously issued signing links stop resolving.
// PUT /v1/envelopes/:id/signers
// Returns 200 OK with the new signer set.
func (h *EnvelopeHandler) ReplaceSignersHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req dto.ReplaceSignersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	signers, err := h.envelopeUseCase.ReplaceSigners(c.Request.Context(), ownerID, envelopeID, dto.ToSignerInputs(req))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"signers": dto.MapSignersToResponse(signers)})
}

// SetFieldsHandler swaps the whole field layout of a draft envelope.
// PUT /v1/envelopes/:id/fields
// Returns 200 OK with the new layout.
func (h *EnvelopeHandler) SetFieldsHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req dto.SetFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	inputs, err := dto.ToFieldInputs(req)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	fields, err := h.envelopeUseCase.SetFields(c.Request.Context(), ownerID, envelopeID, inputs)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fields": dto.MapFieldsToResponse(fields)})
}

// SendHandler transitions an envelope from draft to pending and fans out
// signature requests.
// POST /v1/envelopes/:id/send
// Returns 204 No Content.
func (h *EnvelopeHandler) SendHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	if err := h.envelopeUseCase.Send(c.Request.Context(), ownerID, envelopeID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// SigningLinksHandler returns each signer's personal signing URL.
// GET /v1/envelopes/:id/links
// Returns 200 OK with the link list.
func (h *EnvelopeHandler) SigningLinksHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	links, err := h.envelopeUseCase.GenerateSigningLinks(c.Request.Context(), ownerID, envelopeID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": dto.MapSigningLinksToResponse(links)})
}

// UpdateReminderSettingsHandler changes the envelope's reminder configuration.
// PUT /v1/envelopes/:id/reminder-settings
// Returns 200 OK with the updated envelope.
func (h *EnvelopeHandler) UpdateReminderSettingsHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	var req dto.UpdateReminderSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	envelope, err := h.envelopeUseCase.UpdateReminderSettings(
		c.Request.Context(),
		ownerID,
		envelopeID,
		req.Enabled,
		dto.ToReminderInterval(req.Interval),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapEnvelopeToResponse(envelope))
}

// AuditTrailHandler builds the presentation-ready audit trail.
// GET /v1/envelopes/:id/audit-trail
// Returns 200 OK with the trail document.
func (h *EnvelopeHandler) AuditTrailHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	trail, err := h.envelopeUseCase.AuditTrail(c.Request.Context(), ownerID, envelopeID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAuditTrailToResponse(trail))
}

// DownloadHandler serves the envelope document: the assembled signed version
// when the envelope completed, the original upload otherwise.
// GET /v1/envelopes/:id/download
// Returns 200 OK with the document bytes.
func (h *EnvelopeHandler) DownloadHandler(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	envelopeID, ok := h.envelopeID(c)
	if !ok {
		return
	}

	result, err := h.envelopeUseCase.Download(c.Request.Context(), ownerID, envelopeID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

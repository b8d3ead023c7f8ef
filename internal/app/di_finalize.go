package app

import (
	"fmt"

	envelopeRepository "github.com/allisson/signflow/internal/envelope/repository"
	envelopeUsecase "github.com/allisson/signflow/internal/envelope/usecase"
	finalizeService "github.com/allisson/signflow/internal/finalize/service"
	finalizeUsecase "github.com/allisson/signflow/internal/finalize/usecase"
)

// Finalizer returns the envelope finalizer instance.
func (c *Container) Finalizer() (envelopeUsecase.Finalizer, error) {
	c.finalizerInit.Do(func() {
		finalizer, err := c.initFinalizer()
		if err != nil {
			c.initErrors["finalizer"] = err
			return
		}
		c.finalizer = finalizer
	})
	if storedErr, exists := c.initErrors["finalizer"]; exists {
		return nil, storedErr
	}
	return c.finalizer, nil
}

func (c *Container) initFinalizer() (envelopeUsecase.Finalizer, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for finalizer: %w", err)
	}

	// The finalizer consumes its own narrow repository interfaces, so the
	// concrete repositories are constructed here rather than shared through
	// the wider envelope accessors.
	var (
		envelopeRepo finalizeUsecase.EnvelopeRepository
		signerRepo   finalizeUsecase.SignerRepository
		fieldRepo    finalizeUsecase.FieldRepository
	)
	switch c.config.DBDriver {
	case "mysql":
		envelopeRepo = envelopeRepository.NewMySQLEnvelopeRepository(db)
		signerRepo = envelopeRepository.NewMySQLSignerRepository(db)
		fieldRepo = envelopeRepository.NewMySQLFieldRepository(db)
	case "postgres":
		envelopeRepo = envelopeRepository.NewPostgreSQLEnvelopeRepository(db)
		signerRepo = envelopeRepository.NewPostgreSQLSignerRepository(db)
		fieldRepo = envelopeRepository.NewPostgreSQLFieldRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	auditUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, err
	}
	blobStore, err := c.BlobStore()
	if err != nil {
		return nil, err
	}
	authority, err := c.Authority()
	if err != nil {
		return nil, err
	}

	return finalizeUsecase.NewFinalizer(
		envelopeRepo,
		signerRepo,
		fieldRepo,
		auditUseCase,
		blobStore,
		c.Dispatcher(),
		finalizeService.NewAssembler(),
		authority,
		c.config.BaseURL,
		c.Logger(),
	), nil
}

package app

import (
	"context"
	"fmt"
	"os"
	"sync"

	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
	caService "github.com/allisson/signflow/internal/ca/service"
	envelopeService "github.com/allisson/signflow/internal/envelope/service"
	envelopeUsecase "github.com/allisson/signflow/internal/envelope/usecase"
	apperrors "github.com/allisson/signflow/internal/errors"
	notificationService "github.com/allisson/signflow/internal/notification/service"
	reminderUsecase "github.com/allisson/signflow/internal/reminder/usecase"
	"github.com/allisson/signflow/internal/storage"
)

// moduleState groups the module-level components and their initialization
// guards, embedded into Container.
type moduleState struct {
	blobStore        storage.BlobStore
	dispatcher       notificationService.Dispatcher
	authority        caService.Authority
	tokenService     envelopeService.TokenService
	twoFactorService envelopeService.TwoFactorService

	auditLogRepo    auditUsecase.AuditLogRepository
	auditLogUseCase auditUsecase.AuditLogUseCase

	envelopeRepo envelopeUsecase.EnvelopeRepository
	signerRepo   envelopeUsecase.SignerRepository
	fieldRepo    envelopeUsecase.FieldRepository

	envelopeUseCase envelopeUsecase.EnvelopeUseCase
	signingUseCase  envelopeUsecase.SigningUseCase
	finalizer       envelopeUsecase.Finalizer
	reminderUseCase reminderUsecase.ReminderUseCase

	blobStoreInit        sync.Once
	dispatcherInit       sync.Once
	authorityInit        sync.Once
	tokenServiceInit     sync.Once
	twoFactorServiceInit sync.Once
	auditLogRepoInit     sync.Once
	auditLogUseCaseInit  sync.Once
	envelopeRepoInit     sync.Once
	signerRepoInit       sync.Once
	fieldRepoInit        sync.Once
	envelopeUseCaseInit  sync.Once
	signingUseCaseInit   sync.Once
	finalizerInit        sync.Once
	reminderUseCaseInit  sync.Once
}

// BlobStore returns the document blob store.
func (c *Container) BlobStore() (storage.BlobStore, error) {
	c.blobStoreInit.Do(func() {
		store, err := storage.NewBlobStore(
			context.Background(),
			c.config.BlobBucketURL,
			c.config.BlobSignedURLTTL,
		)
		if err != nil {
			c.initErrors["blobStore"] = fmt.Errorf("failed to open blob store: %w", err)
			return
		}
		c.blobStore = store
	})
	if storedErr, exists := c.initErrors["blobStore"]; exists {
		return nil, storedErr
	}
	return c.blobStore, nil
}

// Dispatcher returns the notification dispatcher.
func (c *Container) Dispatcher() notificationService.Dispatcher {
	c.dispatcherInit.Do(func() {
		logger := c.Logger()
		sender := notificationService.NewSlogSender(logger)
		c.dispatcher = notificationService.NewDispatcher(sender, c.config.NotificationMinSendDelay, logger)
	})
	return c.dispatcher
}

// Authority returns the certificate authority. When no CA material is
// configured a fresh chain is generated at first use; a partially provided
// file set is a configuration error.
func (c *Container) Authority() (caService.Authority, error) {
	c.authorityInit.Do(func() {
		material, err := c.loadCAMaterial()
		if err != nil {
			c.initErrors["authority"] = err
			return
		}
		c.authority = caService.NewAuthority(material)
	})
	if storedErr, exists := c.initErrors["authority"]; exists {
		return nil, storedErr
	}
	return c.authority, nil
}

// loadCAMaterial reads the configured PEM files, or returns a zero Material
// when none are configured.
func (c *Container) loadCAMaterial() (caService.Material, error) {
	files := c.config.CAFiles()

	configured := 0
	for _, file := range files {
		if file != "" {
			configured++
		}
	}

	if configured == 0 {
		return caService.Material{}, nil
	}
	if configured != len(files) {
		return caService.Material{}, apperrors.Wrap(
			apperrors.ErrConfiguration,
			"certificate authority material must be provided completely or not at all",
		)
	}

	contents := make([][]byte, len(files))
	for i, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return caService.Material{}, fmt.Errorf("failed to read CA material %s: %w", file, err)
		}
		contents[i] = data
	}

	return caService.Material{
		RootCertPEM:         contents[0],
		RootKeyPEM:          contents[1],
		IntermediateCertPEM: contents[2],
		IntermediateKeyPEM:  contents[3],
		SigningCertPEM:      contents[4],
		SigningKeyPEM:       contents[5],
	}, nil
}

// TokenService returns the signing token generator.
func (c *Container) TokenService() envelopeService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = envelopeService.NewTokenService()
	})
	return c.tokenService
}

// TwoFactorService returns the SMS verification code service.
func (c *Container) TwoFactorService() (envelopeService.TwoFactorService, error) {
	c.twoFactorServiceInit.Do(func() {
		service, err := envelopeService.NewTwoFactorService()
		if err != nil {
			c.initErrors["twoFactorService"] = fmt.Errorf("failed to create two factor service: %w", err)
			return
		}
		c.twoFactorService = service
	})
	if storedErr, exists := c.initErrors["twoFactorService"]; exists {
		return nil, storedErr
	}
	return c.twoFactorService, nil
}

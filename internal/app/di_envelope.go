package app

import (
	"fmt"

	envelopeRepository "github.com/allisson/signflow/internal/envelope/repository"
	envelopeUsecase "github.com/allisson/signflow/internal/envelope/usecase"
)

// EnvelopeRepository returns the envelope repository instance.
func (c *Container) EnvelopeRepository() (envelopeUsecase.EnvelopeRepository, error) {
	c.envelopeRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["envelopeRepo"] = fmt.Errorf("failed to get database for envelope repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.envelopeRepo = envelopeRepository.NewMySQLEnvelopeRepository(db)
		case "postgres":
			c.envelopeRepo = envelopeRepository.NewPostgreSQLEnvelopeRepository(db)
		default:
			c.initErrors["envelopeRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["envelopeRepo"]; exists {
		return nil, storedErr
	}
	return c.envelopeRepo, nil
}

// SignerRepository returns the signer repository instance.
func (c *Container) SignerRepository() (envelopeUsecase.SignerRepository, error) {
	c.signerRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["signerRepo"] = fmt.Errorf("failed to get database for signer repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.signerRepo = envelopeRepository.NewMySQLSignerRepository(db)
		case "postgres":
			c.signerRepo = envelopeRepository.NewPostgreSQLSignerRepository(db)
		default:
			c.initErrors["signerRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["signerRepo"]; exists {
		return nil, storedErr
	}
	return c.signerRepo, nil
}

// FieldRepository returns the field repository instance.
func (c *Container) FieldRepository() (envelopeUsecase.FieldRepository, error) {
	c.fieldRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["fieldRepo"] = fmt.Errorf("failed to get database for field repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.fieldRepo = envelopeRepository.NewMySQLFieldRepository(db)
		case "postgres":
			c.fieldRepo = envelopeRepository.NewPostgreSQLFieldRepository(db)
		default:
			c.initErrors["fieldRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["fieldRepo"]; exists {
		return nil, storedErr
	}
	return c.fieldRepo, nil
}

// EnvelopeUseCase returns the owner-facing envelope use case instance.
func (c *Container) EnvelopeUseCase() (envelopeUsecase.EnvelopeUseCase, error) {
	c.envelopeUseCaseInit.Do(func() {
		useCase, err := c.initEnvelopeUseCase()
		if err != nil {
			c.initErrors["envelopeUseCase"] = err
			return
		}
		c.envelopeUseCase = useCase
	})
	if storedErr, exists := c.initErrors["envelopeUseCase"]; exists {
		return nil, storedErr
	}
	return c.envelopeUseCase, nil
}

func (c *Container) initEnvelopeUseCase() (envelopeUsecase.EnvelopeUseCase, error) {
	envelopeRepo, err := c.EnvelopeRepository()
	if err != nil {
		return nil, err
	}
	signerRepo, err := c.SignerRepository()
	if err != nil {
		return nil, err
	}
	fieldRepo, err := c.FieldRepository()
	if err != nil {
		return nil, err
	}
	auditUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, err
	}
	blobStore, err := c.BlobStore()
	if err != nil {
		return nil, err
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}

	useCase := envelopeUsecase.NewEnvelopeUseCase(
		envelopeRepo,
		signerRepo,
		fieldRepo,
		auditUseCase,
		blobStore,
		c.Dispatcher(),
		c.TokenService(),
		txManager,
		c.config.BaseURL,
		c.Logger(),
	)

	return c.decorateEnvelopeUseCase(useCase)
}

// SigningUseCase returns the token-authenticated signing use case instance.
func (c *Container) SigningUseCase() (envelopeUsecase.SigningUseCase, error) {
	c.signingUseCaseInit.Do(func() {
		useCase, err := c.initSigningUseCase()
		if err != nil {
			c.initErrors["signingUseCase"] = err
			return
		}
		c.signingUseCase = useCase
	})
	if storedErr, exists := c.initErrors["signingUseCase"]; exists {
		return nil, storedErr
	}
	return c.signingUseCase, nil
}

func (c *Container) initSigningUseCase() (envelopeUsecase.SigningUseCase, error) {
	envelopeRepo, err := c.EnvelopeRepository()
	if err != nil {
		return nil, err
	}
	signerRepo, err := c.SignerRepository()
	if err != nil {
		return nil, err
	}
	fieldRepo, err := c.FieldRepository()
	if err != nil {
		return nil, err
	}
	auditUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, err
	}
	twoFactorService, err := c.TwoFactorService()
	if err != nil {
		return nil, err
	}
	finalizer, err := c.Finalizer()
	if err != nil {
		return nil, err
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}

	useCase := envelopeUsecase.NewSigningUseCase(
		envelopeRepo,
		signerRepo,
		fieldRepo,
		auditUseCase,
		c.Dispatcher(),
		twoFactorService,
		finalizer,
		txManager,
		c.Logger(),
	)

	return c.decorateSigningUseCase(useCase)
}

package app

import (
	"fmt"

	envelopeRepository "github.com/allisson/signflow/internal/envelope/repository"
	reminderUsecase "github.com/allisson/signflow/internal/reminder/usecase"
)

// ReminderUseCase returns the reminder sweep use case instance.
func (c *Container) ReminderUseCase() (reminderUsecase.ReminderUseCase, error) {
	c.reminderUseCaseInit.Do(func() {
		useCase, err := c.initReminderUseCase()
		if err != nil {
			c.initErrors["reminderUseCase"] = err
			return
		}
		c.reminderUseCase = useCase
	})
	if storedErr, exists := c.initErrors["reminderUseCase"]; exists {
		return nil, storedErr
	}
	return c.reminderUseCase, nil
}

func (c *Container) initReminderUseCase() (reminderUsecase.ReminderUseCase, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for reminder use case: %w", err)
	}

	// The sweep consumes its own narrow repository interfaces.
	var (
		envelopeRepo reminderUsecase.EnvelopeRepository
		signerRepo   reminderUsecase.SignerRepository
	)
	switch c.config.DBDriver {
	case "mysql":
		envelopeRepo = envelopeRepository.NewMySQLEnvelopeRepository(db)
		signerRepo = envelopeRepository.NewMySQLSignerRepository(db)
	case "postgres":
		envelopeRepo = envelopeRepository.NewPostgreSQLEnvelopeRepository(db)
		signerRepo = envelopeRepository.NewPostgreSQLSignerRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	auditUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, err
	}

	useCaseConfig := reminderUsecase.Config{
		Interval:    c.config.ReminderWorkerInterval,
		Concurrency: c.config.ReminderSweepConcurrency,
	}

	useCase := reminderUsecase.NewReminderUseCase(
		useCaseConfig,
		envelopeRepo,
		signerRepo,
		auditUseCase,
		c.Dispatcher(),
		c.config.BaseURL,
		c.Logger(),
	)

	recorder, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}
	if recorder != nil {
		useCase = reminderUsecase.NewReminderUseCaseWithMetrics(useCase, recorder)
	}

	return useCase, nil
}

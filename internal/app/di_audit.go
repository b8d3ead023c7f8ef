package app

import (
	"fmt"

	auditRepository "github.com/allisson/signflow/internal/audit/repository"
	auditService "github.com/allisson/signflow/internal/audit/service"
	auditUsecase "github.com/allisson/signflow/internal/audit/usecase"
)

// AuditLogRepository returns the audit log repository instance.
func (c *Container) AuditLogRepository() (auditUsecase.AuditLogRepository, error) {
	c.auditLogRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["auditLogRepo"] = fmt.Errorf("failed to get database for audit log repository: %w", err)
			return
		}

		// Select the appropriate repository based on the database driver
		switch c.config.DBDriver {
		case "mysql":
			c.auditLogRepo = auditRepository.NewMySQLAuditLogRepository(db)
		case "postgres":
			c.auditLogRepo = auditRepository.NewPostgreSQLAuditLogRepository(db)
		default:
			c.initErrors["auditLogRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["auditLogRepo"]; exists {
		return nil, storedErr
	}
	return c.auditLogRepo, nil
}

// AuditLogUseCase returns the audit log use case instance.
func (c *Container) AuditLogUseCase() (auditUsecase.AuditLogUseCase, error) {
	c.auditLogUseCaseInit.Do(func() {
		repo, err := c.AuditLogRepository()
		if err != nil {
			c.initErrors["auditLogUseCase"] = err
			return
		}

		ledgerSigner, err := auditService.NewLedgerSigner([]byte(c.config.AuditLedgerKey))
		if err != nil {
			c.initErrors["auditLogUseCase"] = fmt.Errorf("failed to create ledger signer: %w", err)
			return
		}

		c.auditLogUseCase = auditUsecase.NewAuditLogUseCase(repo, ledgerSigner)
	})
	if storedErr, exists := c.initErrors["auditLogUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditLogUseCase, nil
}

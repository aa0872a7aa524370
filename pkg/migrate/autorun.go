package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/salessavvy-storefront/pkg/db"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
)

// Ensure brings the session storage schema up to date. It runs on every
// SQL store open; goose skips what is already applied.
func Ensure(ctx context.Context, client *db.Client, driver string, logg *logger.Logger) error {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	if err := Up(ctx, sqlDB, driver); err != nil {
		return err
	}
	if logg != nil {
		version, err := Version(ctx, sqlDB, driver)
		if err == nil {
			logg.Debug(logg.WithFields(ctx, map[string]any{"db_driver": driver, "schema_version": version}), "session schema ready")
		}
	}
	return nil
}

package migration

import (
	"strings"

	"github.com/smallbiznis/taxgate/internal/config"
	"github.com/smallbiznis/taxgate/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}

		if !cfg.DefaultTenant.Enabled() {
			return nil
		}
		tenant, err := seed.EnsureDefaultTenant(conn, cfg.DefaultTenant)
		if err != nil {
			return err
		}
		log.Info("default tenant ready",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("seller_ntn", tenant.SellerNTN),
		)
		return nil
	}),
)

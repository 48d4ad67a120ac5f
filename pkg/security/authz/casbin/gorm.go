package casbin

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

// NewGormEnforcer 在已有的 GORM 连接上创建 Casbin enforcer。
// adapter 会自动建 casbin_rule 表。
func NewGormEnforcer(db *gorm.DB, modelPath string) (*casbin.Enforcer, error) {
	a, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create gorm adapter: %w", err)
	}

	e, err := casbin.NewEnforcer(modelPath, a)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	if err := e.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	return e, nil
}

// NewServiceWithGorm creates a PermissionService using the GORM adapter.
func NewServiceWithGorm(db *gorm.DB, modelPath string) (PermissionService, error) {
	e, err := NewGormEnforcer(db, modelPath)
	if err != nil {
		return nil, err
	}
	return &service{enforcer: e}, nil
}

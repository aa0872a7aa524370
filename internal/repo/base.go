package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base binds a GORM connection to one storage namespace so several
// storefront profiles can share a database.
type Base struct {
	db        *gorm.DB
	namespace string
}

// NewBase constructs a Base for namespace.
func NewBase(db *gorm.DB, namespace string) Base {
	return Base{db: db, namespace: namespace}
}

// Namespace returns the partition rows are written under.
func (b Base) Namespace() string {
	return b.namespace
}

// DB returns the connection bound to ctx (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Scoped returns a query restricted to the namespace column.
func (b Base) Scoped(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Where("namespace = ?", b.namespace)
}

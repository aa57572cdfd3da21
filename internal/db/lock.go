package db

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Unlock releases an advisory lock taken by TryAdvisoryLock.
type Unlock func()

// TryAdvisoryLock takes a session-level advisory lock keyed on hashtext(key)
// without blocking. The lock lives on one pinned connection, so unlock always
// runs on the connection that acquired it. ok is false when another session
// holds the lock.
func TryAdvisoryLock(ctx context.Context, d *gorm.DB, key string) (unlock Unlock, ok bool, err error) {
	sqlDB, err := d.DB()
	if err != nil {
		return nil, false, fmt.Errorf("get sql.DB: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("pin connection: %w", err)
	}

	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock(hashtext($1))`, key).Scan(&ok); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("advisory lock %q: %w", key, err)
	}
	if !ok {
		_ = conn.Close()
		return nil, false, nil
	}

	return func() {
		var dummy bool
		_ = conn.QueryRowContext(context.Background(), `SELECT pg_advisory_unlock(hashtext($1))`, key).Scan(&dummy)
		_ = conn.Close()
	}, true, nil
}

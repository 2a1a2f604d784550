package postgres

import (
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// DB bundles the PostgreSQL stores sharing one connection pool and owns the
// pool's lifecycle.
type DB struct {
	pool *pgxpool.Pool

	Tenants     *TenantStore
	Assignments *RoleAssignmentStore
	Accounts    *AccountStore

	// Lifecycle
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDB creates the stores backed by pool.
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{
		pool:        pool,
		Tenants:     NewTenantStore(pool),
		Assignments: NewRoleAssignmentStore(pool),
		Accounts:    NewAccountStore(pool),
		stopCh:      make(chan struct{}),
	}
}

// Start begins background monitoring of the connection pool.
func (db *DB) Start() error {
	log.Info().Msg("Starting PostgreSQL stores")

	db.wg.Add(1)
	go func() {
		defer db.wg.Done()
		db.monitorConnectionPool(30 * time.Second)
	}()

	return nil
}

// Stop halts background tasks and closes the pool.
func (db *DB) Stop() error {
	db.stopOnce.Do(func() {
		log.Info().Msg("Stopping PostgreSQL stores")
		close(db.stopCh)
		db.wg.Wait()
		db.pool.Close()
	})
	return nil
}

// monitorConnectionPool logs connection pool statistics periodically.
func (db *DB) monitorConnectionPool(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := db.pool.Stat()
			log.Debug().
				Int32("total_conns", stats.TotalConns()).
				Int32("idle_conns", stats.IdleConns()).
				Int32("acquired_conns", stats.AcquiredConns()).
				Int64("acquire_count", stats.AcquireCount()).
				Int64("acquire_duration_ns", stats.AcquireDuration().Nanoseconds()).
				Msg("Connection pool stats")
		case <-db.stopCh:
			return
		}
	}
}

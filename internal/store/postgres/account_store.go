package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
	"github.com/wolfeidau/tenantry/internal/tenancy"
)

const accountColumns = `account_id, tenant_id, name, description, created_at`

// AccountStore implements store.AccountStore using PostgreSQL.
//
// Every statement is produced by baseQuery, which always begins the WHERE clause
// with the current tenant. There is no other way to build SQL in this type.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new PostgreSQL-backed account store.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{
		pool: pool,
	}
}

// scopedQuery is a statement pinned to one tenant. Further predicates can only
// narrow it.
type scopedQuery struct {
	sql  strings.Builder
	args []any
}

// baseQuery starts a statement for the current tenant, e.g.
// "SELECT ... FROM accounts" becomes "SELECT ... FROM accounts WHERE tenant_id = $1".
func (s *AccountStore) baseQuery(ctx context.Context, head string) (*scopedQuery, error) {
	tenant, err := tenancy.FromContext(ctx)
	if err != nil {
		return nil, err
	}

	q := &scopedQuery{args: []any{tenant.ID()}}
	q.sql.WriteString(head)
	q.sql.WriteString(" WHERE tenant_id = $1")
	return q, nil
}

// and appends "AND column = $n".
func (q *scopedQuery) and(column string, arg any) *scopedQuery {
	q.args = append(q.args, arg)
	q.sql.WriteString(" AND ")
	q.sql.WriteString(column)
	q.sql.WriteString(" = $")
	q.sql.WriteString(strconv.Itoa(len(q.args)))
	return q
}

func (q *scopedQuery) suffix(clause string) *scopedQuery {
	q.sql.WriteString(" ")
	q.sql.WriteString(clause)
	return q
}

func (q *scopedQuery) String() string { return q.sql.String() }

// List returns all accounts of the current tenant ordered by name.
func (s *AccountStore) List(ctx context.Context) ([]*models.Account, error) {
	q, err := s.baseQuery(ctx, `SELECT `+accountColumns+` FROM accounts`)
	if err != nil {
		return nil, err
	}
	q.suffix("ORDER BY name, account_id")

	rows, err := s.pool.Query(ctx, q.String(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return result, nil
}

// Get retrieves an account of the current tenant.
func (s *AccountStore) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	q, err := s.baseQuery(ctx, `SELECT `+accountColumns+` FROM accounts`)
	if err != nil {
		return nil, err
	}
	q.and("account_id", accountID)

	a, err := scanAccount(s.pool.QueryRow(ctx, q.String(), q.args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", mapPostgresError(err))
	}

	return a, nil
}

// Create inserts an account, stamping TenantID from the context.
//
// The insert selects the tenant id through baseQuery rather than binding a
// caller-supplied value.
func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	q, err := s.baseQuery(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		SELECT $2, tenant_id, $3, $4, $5 FROM tenants`)
	if err != nil {
		return err
	}

	accountID, err := uuid.NewV7()
	if err != nil {
		return err
	}
	createdAt := time.Now()
	q.args = append(q.args, accountID, account.Name, account.Description, createdAt)
	q.suffix("RETURNING tenant_id")

	var tenantID int64
	if err := s.pool.QueryRow(ctx, q.String(), q.args...).Scan(&tenantID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// tenant deleted after the request was authorized
			return store.ErrTenantNotFound
		}
		return fmt.Errorf("failed to create account: %w", mapPostgresError(err))
	}

	account.AccountID = accountID
	account.TenantID = tenantID
	account.CreatedAt = createdAt

	return nil
}

// Delete removes an account of the current tenant.
func (s *AccountStore) Delete(ctx context.Context, accountID uuid.UUID) error {
	q, err := s.baseQuery(ctx, `DELETE FROM accounts`)
	if err != nil {
		return err
	}
	q.and("account_id", accountID)

	result, err := s.pool.Exec(ctx, q.String(), q.args...)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", mapPostgresError(err))
	}

	if result.RowsAffected() == 0 {
		return store.ErrAccountNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.AccountID,
		&a.TenantID,
		&a.Name,
		&a.Description,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

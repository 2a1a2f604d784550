package memory

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tenantry/internal/authz"
	"github.com/wolfeidau/tenantry/internal/models"
	"github.com/wolfeidau/tenantry/internal/store"
	"github.com/wolfeidau/tenantry/internal/tenancy"
)

func createTenant(t *testing.T, st *Stores, name string) *models.Tenant {
	t.Helper()
	tenant := &models.Tenant{PublicKey: uuid.New(), Name: name}
	require.NoError(t, st.Tenants.Create(context.Background(), tenant))
	return tenant
}

// tenantContext builds a request context that has passed authorization for tenant.
func tenantContext(t *testing.T, tenant *models.Tenant) context.Context {
	t.Helper()
	d, err := authz.Decide([]string{authz.FormatClaim(tenant.PublicKey, models.RoleOwner)}, tenant.PublicKey.String(), models.RoleViewer)
	require.NoError(t, err)
	ctx, err := tenancy.Establish(authz.WithDecision(context.Background(), d), tenant)
	require.NoError(t, err)
	return ctx
}

func TestTenantStore(t *testing.T) {
	ctx := context.Background()

	t.Run("create assigns internal ids", func(t *testing.T) {
		st := New()
		a := createTenant(t, st, "a")
		b := createTenant(t, st, "b")
		require.NotZero(t, a.InternalID)
		require.NotEqual(t, a.InternalID, b.InternalID)
		require.False(t, a.CreatedAt.IsZero())
	})

	t.Run("duplicate public key", func(t *testing.T) {
		st := New()
		a := createTenant(t, st, "a")
		err := st.Tenants.Create(ctx, &models.Tenant{PublicKey: a.PublicKey, Name: "again"})
		require.ErrorIs(t, err, store.ErrTenantAlreadyExists)
	})

	t.Run("get by key", func(t *testing.T) {
		st := New()
		a := createTenant(t, st, "a")

		got, err := st.Tenants.GetByKey(ctx, a.PublicKey)
		require.NoError(t, err)
		require.Equal(t, a.InternalID, got.InternalID)
		require.Equal(t, "a", got.Name)

		_, err = st.Tenants.GetByKey(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrTenantNotFound)
	})

	t.Run("delete cascades", func(t *testing.T) {
		st := New()
		a := createTenant(t, st, "a")
		userID := uuid.New()

		require.NoError(t, st.Assignments.Create(ctx, &models.RoleAssignment{UserID: userID, TenantID: a.InternalID, Role: models.RoleOwner}))
		require.NoError(t, st.Accounts.Create(tenantContext(t, a), &models.Account{Name: "cash"}))

		require.NoError(t, st.Tenants.Delete(ctx, a.PublicKey))

		_, err := st.Tenants.GetByKey(ctx, a.PublicKey)
		require.ErrorIs(t, err, store.ErrTenantNotFound)

		access, err := st.Assignments.ListForUser(ctx, userID)
		require.NoError(t, err)
		require.Empty(t, access)
		require.Empty(t, st.Accounts.db.accounts)

		require.ErrorIs(t, st.Tenants.Delete(ctx, a.PublicKey), store.ErrTenantNotFound)
	})
}

func TestRoleAssignmentStore(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate grant leaves first unchanged", func(t *testing.T) {
		st := New()
		a := createTenant(t, st, "a")
		userID := uuid.New()

		require.NoError(t, st.Assignments.Create(ctx, &models.RoleAssignment{UserID: userID, TenantID: a.InternalID, Role: models.RoleViewer}))

		err := st.Assignments.Create(ctx, &models.RoleAssignment{UserID: userID, TenantID: a.InternalID, Role: models.RoleOwner})
		require.ErrorIs(t, err, store.ErrDuplicateRoleAssignment)

		got, err := st.Assignments.Get(ctx, userID, a.InternalID)
		require.NoError(t, err)
		require.Equal(t, models.RoleViewer, got.Role)
	})

	t.Run("concurrent grants yield exactly one success", func(t *testing.T) {
		st := New()
		a := createTenant(t, st, "a")
		userID := uuid.New()

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
			dupes     int
		)
		for range 16 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := st.Assignments.Create(ctx, &models.RoleAssignment{UserID: userID, TenantID: a.InternalID, Role: models.RoleEditor})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					successes++
				} else if err == store.ErrDuplicateRoleAssignment {
					dupes++
				}
			}()
		}
		wg.Wait()

		require.Equal(t, 1, successes)
		require.Equal(t, 15, dupes)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		st := New()
		err := st.Assignments.Create(ctx, &models.RoleAssignment{UserID: uuid.New(), TenantID: 999, Role: models.RoleViewer})
		require.ErrorIs(t, err, store.ErrTenantNotFound)
	})

	t.Run("remove", func(t *testing.T) {
		st := New()
		a := createTenant(t, st, "a")
		assignment := &models.RoleAssignment{UserID: uuid.New(), TenantID: a.InternalID, Role: models.RoleEditor}
		require.NoError(t, st.Assignments.Create(ctx, assignment))

		require.NoError(t, st.Assignments.Remove(ctx, assignment))
		require.ErrorIs(t, st.Assignments.Remove(ctx, assignment), store.ErrRoleAssignmentNotFound)

		_, err := st.Assignments.Get(ctx, assignment.UserID, a.InternalID)
		require.ErrorIs(t, err, store.ErrRoleAssignmentNotFound)
	})

	t.Run("list for user joins tenant rows", func(t *testing.T) {
		st := New()
		a := createTenant(t, st, "a")
		b := createTenant(t, st, "b")
		createTenant(t, st, "c")
		userID := uuid.New()

		require.NoError(t, st.Assignments.Create(ctx, &models.RoleAssignment{UserID: userID, TenantID: a.InternalID, Role: models.RoleViewer}))
		require.NoError(t, st.Assignments.Create(ctx, &models.RoleAssignment{UserID: userID, TenantID: b.InternalID, Role: models.RoleOwner}))
		require.NoError(t, st.Assignments.Create(ctx, &models.RoleAssignment{UserID: uuid.New(), TenantID: a.InternalID, Role: models.RoleOwner}))

		access, err := st.Assignments.ListForUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, access, 2)

		roles := map[uuid.UUID]models.Role{}
		for _, ta := range access {
			roles[ta.Tenant.PublicKey] = ta.Role
		}
		require.Equal(t, models.RoleViewer, roles[a.PublicKey])
		require.Equal(t, models.RoleOwner, roles[b.PublicKey])

		members, err := st.Assignments.ListForTenant(ctx, a.InternalID)
		require.NoError(t, err)
		require.Len(t, members, 2)
	})
}

func TestAccountStore_Isolation(t *testing.T) {
	st := New()
	a := createTenant(t, st, "a")
	b := createTenant(t, st, "b")

	ctxA := tenantContext(t, a)
	ctxB := tenantContext(t, b)

	for _, name := range []string{"a1", "a2", "a3"} {
		require.NoError(t, st.Accounts.Create(ctxA, &models.Account{Name: name}))
	}
	var bAccounts []*models.Account
	for _, name := range []string{"b1", "b2", "b3", "b4", "b5"} {
		acct := &models.Account{Name: name, TenantID: a.InternalID} // caller value must be ignored
		require.NoError(t, st.Accounts.Create(ctxB, acct))
		require.Equal(t, b.InternalID, acct.TenantID)
		bAccounts = append(bAccounts, acct)
	}

	listA, err := st.Accounts.List(ctxA)
	require.NoError(t, err)
	require.Len(t, listA, 3)
	for _, acct := range listA {
		require.Equal(t, a.InternalID, acct.TenantID)
	}

	listB, err := st.Accounts.List(ctxB)
	require.NoError(t, err)
	require.Len(t, listB, 5)

	t.Run("cannot read another tenant's row by id", func(t *testing.T) {
		_, err := st.Accounts.Get(ctxA, bAccounts[0].AccountID)
		require.ErrorIs(t, err, store.ErrAccountNotFound)
	})

	t.Run("cannot delete another tenant's row by id", func(t *testing.T) {
		err := st.Accounts.Delete(ctxA, bAccounts[0].AccountID)
		require.ErrorIs(t, err, store.ErrAccountNotFound)

		got, err := st.Accounts.Get(ctxB, bAccounts[0].AccountID)
		require.NoError(t, err)
		require.Equal(t, "b1", got.Name)
	})

	t.Run("delete own row", func(t *testing.T) {
		require.NoError(t, st.Accounts.Delete(ctxB, bAccounts[1].AccountID))
		_, err := st.Accounts.Get(ctxB, bAccounts[1].AccountID)
		require.ErrorIs(t, err, store.ErrAccountNotFound)
	})
}

func TestAccountStore_ContextNotSet(t *testing.T) {
	st := New()
	ctx := context.Background()

	_, err := st.Accounts.List(ctx)
	require.ErrorIs(t, err, tenancy.ErrContextNotSet)

	_, err = st.Accounts.Get(ctx, uuid.New())
	require.ErrorIs(t, err, tenancy.ErrContextNotSet)

	err = st.Accounts.Create(ctx, &models.Account{Name: "x"})
	require.ErrorIs(t, err, tenancy.ErrContextNotSet)

	err = st.Accounts.Delete(ctx, uuid.New())
	require.ErrorIs(t, err, tenancy.ErrContextNotSet)
}

func TestAccountStore_CreateAfterTenantDeleted(t *testing.T) {
	st := New()
	tenant := createTenant(t, st, "gone")
	ctx := tenantContext(t, tenant)

	require.NoError(t, st.Tenants.Delete(context.Background(), tenant.PublicKey))

	acct := &models.Account{Name: "cash"}
	require.ErrorIs(t, st.Accounts.Create(ctx, acct), store.ErrTenantNotFound)
	require.Equal(t, models.Account{Name: "cash"}, *acct)
}

func TestAccountStore_ListOrder(t *testing.T) {
	st := New()
	tenant := createTenant(t, st, "acme")
	ctx := tenantContext(t, tenant)

	for _, name := range []string{"same", "alpha", "same", "same"} {
		require.NoError(t, st.Accounts.Create(ctx, &models.Account{Name: name}))
	}

	for range 5 {
		list, err := st.Accounts.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 4)
		require.Equal(t, "alpha", list[0].Name)
		for i := 2; i < len(list); i++ {
			require.Equal(t, -1, bytes.Compare(list[i-1].AccountID[:], list[i].AccountID[:]))
		}
	}
}

package members

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rewards-bot/internal/common"
)

type memStore struct {
	byID map[int64]*Member
}

func newMemStore() *memStore { return &memStore{byID: make(map[int64]*Member)} }

func (m *memStore) Create(_ context.Context, mem *Member) error {
	cp := *mem
	m.byID[mem.UserID] = &cp
	return nil
}

func (m *memStore) GetByUserID(_ context.Context, userID int64) (*Member, error) {
	mem, ok := m.byID[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	cp := *mem
	return &cp, nil
}

func (m *memStore) GetByUsername(_ context.Context, username string) (*Member, error) {
	for _, mem := range m.byID {
		if strings.EqualFold(mem.Username, username) {
			cp := *mem
			return &cp, nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (m *memStore) Exists(_ context.Context, userID int64) (bool, error) {
	_, ok := m.byID[userID]
	return ok, nil
}

func (m *memStore) UpdateInfo(_ context.Context, userID int64, info UpdateInfo) error {
	mem := m.byID[userID]
	mem.Username, mem.FirstName, mem.LastName = info.Username, info.FirstName, info.LastName
	return nil
}

func (m *memStore) UpdateRole(_ context.Context, userID int64, role string) error {
	m.byID[userID].Role = &role
	return nil
}

func (m *memStore) SetAdmin(_ context.Context, userID int64, isAdmin bool) error {
	m.byID[userID].IsAdmin = isAdmin
	return nil
}

func (m *memStore) GetUsersWithoutRole(context.Context) ([]*Member, error) { return nil, nil }
func (m *memStore) GetUsersWithRole(context.Context) ([]*Member, error) { return nil, nil }
func (m *memStore) GetAll(context.Context) ([]*Member, error) { return nil, nil }

func TestPermissions(t *testing.T) {
	svc := NewService(newMemStore(), []int64{1})
	ctx := context.Background()

	require.NoError(t, svc.EnsureMember(ctx, 1, "boss", "Анна", ""))
	require.NoError(t, svc.EnsureMember(ctx, 2, "", "Пётр", "Иванов"))
	require.NoError(t, svc.AssignRole(ctx, 2, " vip "))

	perms, err := svc.Permissions(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, perms)

	perms, err = svc.Permissions(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"vip"}, perms)

	perms, err = svc.Permissions(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestAssignRole_Validation(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()
	require.NoError(t, svc.EnsureMember(ctx, 1, "", "Анна", ""))

	assert.ErrorIs(t, svc.AssignRole(ctx, 1, strings.Repeat("я", MaxRoleLength+1)), common.ErrRoleTooLong)
	assert.Error(t, svc.AssignRole(ctx, 1, "   "))
	assert.NoError(t, svc.AssignRole(ctx, 1, strings.Repeat("я", MaxRoleLength)))
}

func TestMention(t *testing.T) {
	svc := NewService(newMemStore(), nil)
	ctx := context.Background()
	require.NoError(t, svc.EnsureMember(ctx, 1, "anna", "Анна", ""))
	require.NoError(t, svc.EnsureMember(ctx, 2, "", "Пётр", "Иванов"))

	assert.Equal(t, "@anna", svc.Mention(ctx, 1))
	assert.Equal(t, "Пётр", svc.Mention(ctx, 2))
	assert.Equal(t, "42", svc.Mention(ctx, 42))

	m, err := svc.GetByUsername(ctx, "@ANNA")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.UserID)
	assert.Equal(t, "Пётр Иванов", (&Member{FirstName: "Пётр", LastName: "Иванов"}).DisplayName())
}

func TestHandleNewMember_UpdatesKnown(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.HandleNewMember(ctx, 1, "old", "Анна", ""))
	require.NoError(t, svc.HandleNewMember(ctx, 1, "new", "Анна", "К"))
	assert.Equal(t, "new", store.byID[1].Username)
	assert.Equal(t, "К", store.byID[1].LastName)
}

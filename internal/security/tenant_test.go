package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_MatchesCanonicalLayout(t *testing.T) {
	assert.Equal(t, "riptide:tenant:abc", Key("abc"))
}

func TestSubKey_MatchesCanonicalLayout(t *testing.T) {
	assert.Equal(t, "riptide:tenant:abc:quota", SubKey("abc", "quota"))
}

func TestPut_StampsCreatedAndUpdatedAtOnFirstWrite(t *testing.T) {
	store := NewTenantStore()
	store.Put(&TenantRecord{TenantID: "abc", Name: "Acme"})

	rec, ok := store.Get("abc")
	assert.True(t, ok)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}

func TestPut_ReplacesRecordAndRestampsCreatedAt(t *testing.T) {
	store := NewTenantStore()
	store.Put(&TenantRecord{TenantID: "abc"})
	first, _ := store.Get("abc")
	createdAt := first.CreatedAt

	store.Put(&TenantRecord{TenantID: "abc", Status: TenantSuspended})
	second, _ := store.Get("abc")
	assert.Equal(t, TenantSuspended, second.Status)
	assert.NotEqual(t, createdAt, second.CreatedAt, "Put always stamps a fresh record rather than merging")
}

func TestGet_MissingTenantReturnsFalse(t *testing.T) {
	store := NewTenantStore()
	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestDelete_CascadesToSubkeys(t *testing.T) {
	store := NewTenantStore()
	store.Put(&TenantRecord{TenantID: "abc"})
	store.PutSubkey("abc", "quota", 100)

	store.Delete("abc")

	_, ok := store.Get("abc")
	assert.False(t, ok)
	assert.Empty(t, store.subkeys["abc"])
}

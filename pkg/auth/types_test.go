package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipalHasScope(t *testing.T) {
	admin := &Principal{Subject: "admin", Scopes: []Scope{ScopeAll}}
	assert.True(t, admin.HasScope(ScopeFiltersWrite))
	assert.True(t, admin.HasScope(ScopeDistributorsWrite))

	reader := &Principal{Subject: "reader", Scopes: []Scope{ScopeStatsRead}}
	assert.True(t, reader.HasScope(ScopeStatsRead))
	assert.False(t, reader.HasScope(ScopeFiltersWrite))

	var nobody *Principal
	assert.False(t, nobody.HasScope(ScopeStatsRead))
}

func TestParseScope(t *testing.T) {
	s, ok := ParseScope("categories:write")
	assert.True(t, ok)
	assert.Equal(t, ScopeCategoriesWrite, s)

	_, ok = ParseScope("admin")
	assert.False(t, ok)
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFrom(ctx))

	p := &Principal{Subject: "svc"}
	ctx = WithPrincipal(ctx, p)
	assert.Same(t, p, PrincipalFrom(ctx))
}

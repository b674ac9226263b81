package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityKind(t *testing.T) {
	assert.True(t, KindRepository.Valid())
	assert.False(t, EntityKind("gist").Valid())
	assert.Equal(t, "organizations", KindOrganization.Plural())
	assert.Equal(t, []EntityKind{KindRepository, KindOrganization, KindUser}, HarvestOrder)
}

func TestParseOwnerKind(t *testing.T) {
	tests := []struct {
		input    string
		expected OwnerKind
	}{
		{"Organization", OwnerOrganization},
		{"organization", OwnerOrganization},
		{"User", OwnerUser},
		{"Bot", OwnerUser},
		{"Mannequin", OwnerUser},
		{"", OwnerUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseOwnerKind(tt.input))
		})
	}
}

func TestOwnerKind_EntityKind(t *testing.T) {
	assert.Equal(t, KindOrganization, OwnerOrganization.EntityKind())
	assert.Equal(t, KindUser, OwnerUser.EntityKind())
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		input       string
		owner, name string
		ok          bool
	}{
		{"golang/go", "golang", "go", true},
		{"a/b.c-d", "a", "b.c-d", true},
		{"noslash", "", "", false},
		{"/name", "", "", false},
		{"owner/", "", "", false},
		{"a/b/c", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			owner, name, ok := SplitFullName(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestRunContext(t *testing.T) {
	_, ok := RunFromContext(context.Background())
	assert.False(t, ok)

	id, ok := RunFromContext(ContextWithRun(context.Background(), "r1"))
	assert.True(t, ok)
	assert.Equal(t, "r1", id)

	_, ok = RunFromContext(ContextWithRun(context.Background(), ""))
	assert.False(t, ok)
}

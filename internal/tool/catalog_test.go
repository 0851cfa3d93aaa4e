package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogNamesUniqueAndOrdered(t *testing.T) {
	defs := Catalog()
	require.Len(t, defs, 12)

	seen := map[string]bool{}
	for _, d := range defs {
		assert.False(t, seen[d.Name], "duplicate tool %s", d.Name)
		seen[d.Name] = true
		assert.NotEmpty(t, d.Description, "tool %s missing description", d.Name)
	}

	assert.Equal(t, ToolListEmails, defs[0].Name)
	assert.Equal(t, ToolGetUserProfile, defs[len(defs)-1].Name)
}

func TestFind(t *testing.T) {
	def, ok := Find(ToolSendEmail)
	require.True(t, ok)
	assert.Equal(t, ToolSendEmail, def.Name)

	_, ok = Find("no_such_tool")
	assert.False(t, ok)
}

func TestInputSchemaMatchesParams(t *testing.T) {
	def, ok := Find(ToolSendEmail)
	require.True(t, ok)

	schema := def.InputSchema()
	assert.Equal(t, "object", schema.Type)
	assert.ElementsMatch(t, []string{"to", "subject", "body"}, schema.Required)

	cc, ok := schema.Properties["cc"]
	require.True(t, ok)
	assert.Equal(t, "array", cc.Type)
	require.NotNil(t, cc.Items)
	assert.Equal(t, "string", cc.Items.Type)
}

func TestFunctionSpecsCoverCatalog(t *testing.T) {
	specs := FunctionSpecs()
	defs := Catalog()
	require.Len(t, specs, len(defs))

	for i, s := range specs {
		assert.Equal(t, "function", s.Type)
		assert.Equal(t, defs[i].Name, s.Name)
		require.NotNil(t, s.Parameters)
	}
}

func TestEveryCatalogEntryRoutes(t *testing.T) {
	d := newTestDispatcher(&sessionMock{authenticated: false}, nil, nil, nil)

	for _, def := range Catalog() {
		result := d.Dispatch(context.Background(), Call{Name: def.Name})
		assert.Equal(t, ErrAuthRequired.Error(), result.Error,
			"tool %s must hit the auth gate, not the name gate", def.Name)
	}
}

package membership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowAllAdmitsAnyone(t *testing.T) {
	var checker Checker = AllowAll{}

	allowed, err := checker.Allowed(context.Background(), "anyone", "any-project")
	require.NoError(t, err)
	assert.True(t, allowed)
}

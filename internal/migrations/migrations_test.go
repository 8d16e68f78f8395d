// AngelaMos | 2026
// migrations_test.go

package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_ParsesEveryFile(t *testing.T) {
	found, err := Source().FindMigrations()
	require.NoError(t, err)
	require.Len(t, found, 5)

	for i, m := range found {
		assert.NotEmpty(t, m.Up, "migration %s has no up statements", m.Id)
		assert.NotEmpty(t, m.Down, "migration %s has no down statements", m.Id)
		if i > 0 {
			assert.Less(t, found[i-1].Id, m.Id)
		}
	}
}

func TestSource_SeedsPlans(t *testing.T) {
	found, err := Source().FindMigrations()
	require.NoError(t, err)

	var seed string
	for _, m := range found {
		for _, stmt := range m.Up {
			if strings.Contains(stmt, "INSERT INTO subscription_plans") {
				seed = stmt
			}
		}
	}

	require.NotEmpty(t, seed)
	assert.Contains(t, seed, `'free'`)
	assert.Contains(t, seed, `'pro'`)
	assert.Contains(t, seed, `"maxTasks": 50`)
	assert.Contains(t, seed, `"maxWorkspaces": -1`)
}

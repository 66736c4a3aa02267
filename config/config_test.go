package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewpoint/leavedesk/config"
	"github.com/crewpoint/leavedesk/leave"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults_AreComplete(t *testing.T) {
	// GIVEN: No config file
	// WHEN: Loading with an explicit minimal file
	// THEN: Defaults produce a valid, fully mapped configuration

	cfg, err := config.Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())

	buckets, err := cfg.Buckets()
	require.NoError(t, err)
	bucket, err := buckets.Resolve("Sick Leave")
	require.NoError(t, err)
	assert.Equal(t, leave.BucketSick, bucket)

	allocations, err := cfg.BucketAllocations()
	require.NoError(t, err)
	assert.True(t, allocations[leave.BucketEarned].Equal(decimal.NewFromInt(15)))
}

func TestLoad_CustomBucketMap(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
leave:
  bucket_map:
    "earned leave": earned
    "sick leave": sick
    "personal leave": personal
    "vacation leave": vacation
    "study leave": personal
`))
	require.NoError(t, err)

	buckets, err := cfg.Buckets()
	require.NoError(t, err)
	bucket, err := buckets.Resolve("Study Leave")
	require.NoError(t, err)
	assert.Equal(t, leave.BucketPersonal, bucket)
}

func TestLoad_UnknownBucketTag_Fails(t *testing.T) {
	// GIVEN: A mapping naming a bucket that does not exist
	// WHEN: Loading configuration
	// THEN: Load fails instead of deferring to the first approval

	_, err := config.Load(writeConfig(t, `
leave:
  bucket_map:
    "sick leave": sabbatical
`))
	assert.Error(t, err)
}

func TestLoad_MalformedAllocation_Fails(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
leave:
  allocations:
    earned: "plenty"
`))
	assert.Error(t, err)
}

func TestLoad_NegativeAllocation_Fails(t *testing.T) {
	_, err := config.Load(writeConfig(t, `
leave:
  allocations:
    earned: "-3"
`))
	assert.Error(t, err)
}

func TestLoad_InvalidPort_Fails(t *testing.T) {
	_, err := config.Load(writeConfig(t, "server:\n  port: -1\n"))
	assert.Error(t, err)
}

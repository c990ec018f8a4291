package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pickup-booker/pkg/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(Options{
		DescriptorPath: filepath.Join(dir, "session.json"),
		ProfileDir:     filepath.Join(dir, "profile"),
		CDPPort:        9222,
		NavTimeout:     time.Second,
	}, logging.NewNop())
}

func writeDescriptor(t *testing.T, s *Store, desc *Descriptor) {
	t.Helper()
	data, err := json.Marshal(desc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.opts.DescriptorPath, data, 0600))
}

func TestApplyMergesPartialUpdates(t *testing.T) {
	store := newTestStore(t)
	writeDescriptor(t, store, &Descriptor{
		CDPEndpoint: "http://127.0.0.1:9222",
		CreatedAt:   time.Now(),
	})

	require.NoError(t, store.Apply(Update{LoggedIn: Bool(true)}))

	desc, err := store.Current()
	require.NoError(t, err)
	assert.True(t, desc.LoggedIn)
	assert.False(t, desc.FormFilled, "untouched fields keep their value")
	assert.Equal(t, "http://127.0.0.1:9222", desc.CDPEndpoint)

	// Re-applying the same update is idempotent.
	require.NoError(t, store.Apply(Update{LoggedIn: Bool(true)}))
	require.NoError(t, store.Apply(Update{FormFilled: Bool(true)}))

	desc, err = store.Current()
	require.NoError(t, err)
	assert.True(t, desc.LoggedIn)
	assert.True(t, desc.FormFilled)
}

func TestApplyWithoutDescriptorFails(t *testing.T) {
	store := newTestStore(t)

	err := store.Apply(Update{LoggedIn: Bool(true)})
	assert.Error(t, err, "progress flags belong to a session; there is none")
}

func TestCurrentReportsMalformedDescriptor(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.opts.DescriptorPath, []byte("{not json"), 0600))

	_, err := store.Current()
	assert.ErrorContains(t, err, "malformed session descriptor")
}

func TestTeardownIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	writeDescriptor(t, store, &Descriptor{CDPEndpoint: "http://127.0.0.1:9222"})

	require.NoError(t, store.Teardown())
	_, err := os.Stat(store.opts.DescriptorPath)
	assert.True(t, os.IsNotExist(err), "descriptor is deleted")

	// Tearing down with nothing active is a no-op, not an error.
	require.NoError(t, store.Teardown())
	require.NoError(t, store.Teardown())
}

func TestClearProfileLocks(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.MkdirAll(store.opts.ProfileDir, 0750))

	for _, name := range profileLockFiles {
		require.NoError(t, os.WriteFile(filepath.Join(store.opts.ProfileDir, name), nil, 0600))
	}
	// Unrelated profile content must survive.
	keep := filepath.Join(store.opts.ProfileDir, "Preferences")
	require.NoError(t, os.WriteFile(keep, []byte("{}"), 0600))

	store.clearProfileLocks()

	for _, name := range profileLockFiles {
		_, err := os.Stat(filepath.Join(store.opts.ProfileDir, name))
		assert.True(t, os.IsNotExist(err), "%s should be removed", name)
	}
	_, err := os.Stat(keep)
	assert.NoError(t, err)
}

func TestSaveDescriptorRoundTrip(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.saveDescriptor(&Descriptor{
		CDPEndpoint: "http://127.0.0.1:9333",
		CreatedAt:   now,
		UpdatedAt:   now,
		LoggedIn:    true,
	}))

	desc, err := store.loadDescriptor()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9333", desc.CDPEndpoint)
	assert.True(t, desc.CreatedAt.Equal(now))
	assert.True(t, desc.LoggedIn)
	assert.False(t, desc.FormFilled)
}

// Acquire needs a real browser; exercised only outside -short runs.
func TestAcquireFreshLaunchIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	store := newTestStore(t)
	defer store.Stop()
	defer store.Teardown()

	page, err := store.Acquire()
	require.NoError(t, err)
	require.NotNil(t, page)

	desc, err := store.Current()
	require.NoError(t, err)
	assert.False(t, desc.LoggedIn)
	assert.False(t, desc.FormFilled)
	assert.NotEmpty(t, desc.CDPEndpoint)

	// A second acquire in the same process reuses the page.
	again, err := store.Acquire()
	require.NoError(t, err)
	assert.Equal(t, page, again)
}

// Reconnection against a dead endpoint must fall through to a fresh
// launch and discard the stale descriptor first.
func TestAcquireStaleEndpointFallsThroughIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	store := newTestStore(t)
	defer store.Stop()
	defer store.Teardown()

	// Point the descriptor at a port nothing listens on.
	writeDescriptor(t, store, &Descriptor{
		CDPEndpoint: "http://127.0.0.1:1",
		CreatedAt:   time.Now(),
		LoggedIn:    true,
		FormFilled:  true,
	})

	page, err := store.Acquire()
	require.NoError(t, err)
	require.NotNil(t, page)

	// The fresh descriptor replaced the stale one: flags are reset.
	desc, err := store.Current()
	require.NoError(t, err)
	assert.False(t, desc.LoggedIn)
	assert.False(t, desc.FormFilled)
}

package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHubInitialized(t *testing.T) {
	h := NewHub()
	require.NotNil(t, h)

	assert.NotNil(t, h.GetRegisterChan())
	assert.NotNil(t, h.GetUnregisterChan())
	assert.Empty(t, h.sessions)
	assert.Zero(t, h.directory.Count())
	assert.Zero(t, h.history.Len())
}

func TestRunSkipsNilRegistration(t *testing.T) {
	h := NewHub()
	go h.Run()

	select {
	case h.GetRegisterChan() <- nil:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("register channel did not accept a value")
	}

	require.NoError(t, h.Shutdown(time.Second))
}

func TestSafeSendToUnregisteredSession(t *testing.T) {
	h := NewHub()
	s := NewSession(nil, h, "test")

	assert.False(t, h.safeSend(s, []byte("x")), "unregistered session must not receive frames")
}

// TestDeliverIsolatesFailedRecipient verifies that one stuck recipient does
// not abort delivery to the rest, and that the stuck session is removed with
// a departure announcement.
func TestDeliverIsolatesFailedRecipient(t *testing.T) {
	h := NewHub()
	stuck := addSession(h)
	healthy := addSession(h)

	stuck.identified = true
	stuck.token = "stuck-token"
	healthy.identified = true
	healthy.token = "healthy-token"

	// Saturate the stuck session's buffer so the next send fails.
	for i := 0; i < cap(stuck.send); i++ {
		stuck.send <- []byte("filler")
	}

	payload := EncodeFrame(OpNotice, "room event")
	h.deliver([]outbound{{to: []*Session{stuck, healthy}, payload: payload}})

	// The healthy session received the frame despite its stuck peer.
	op, _ := recvFrame(t, healthy)
	assert.Equal(t, "Notice", op)

	// The stuck session was removed and its departure announced.
	h.mutex.RLock()
	_, stillRegistered := h.sessions[stuck.id]
	h.mutex.RUnlock()
	assert.False(t, stillRegistered)

	args := expectFrame(t, healthy, "Left")
	require.Len(t, args, 1)
	assert.Equal(t, "stuck-token", args[0])
}

func TestShutdownIdleHub(t *testing.T) {
	h := NewHub()
	go h.Run()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, h.Shutdown(time.Second))
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPeerEvent_IsTerminal(t *testing.T) {
	assert.True(t, PeerEvent{Type: EvtDisconnected}.IsTerminal())
	assert.True(t, PeerEvent{Type: EvtFailed}.IsTerminal())
	assert.False(t, PeerEvent{Type: EvtConnected}.IsTerminal())
	assert.Equal(t, "waiting", EvtWaiting.String())
}

package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAndDecodeFrame(t *testing.T) {
	raw, err := Encode(EventJoinSession, JoinSession{SessionID: "S"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"join-session","data":{"sessionId":"S"}}`, string(raw))

	f, err := DecodeFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, EventJoinSession, f.Event)

	var p JoinSession
	require.NoError(t, DecodePayload(f, &p))
	assert.Equal(t, "S", p.SessionID)
}

func TestDecodeFrameRejectsMissingEvent(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"data":{"sessionId":"S"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing event name")
}

func TestDecodeFrameRejectsInvalidJSON(t *testing.T) {
	_, err := DecodeFrame([]byte(`{"event":`))
	assert.Error(t, err)
}

func TestDecodePayloadRejectsEmptyPayload(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"event":"code-update"}`))
	require.NoError(t, err)

	var p CodeUpdate
	err = DecodePayload(f, &p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty payload")
}

func TestLanguageChangeNilRoundTrip(t *testing.T) {
	raw, err := Encode(EventLanguageChange, LanguageChange{SessionID: "S"})
	require.NoError(t, err)

	f, err := DecodeFrame(raw)
	require.NoError(t, err)

	var p LanguageChange
	require.NoError(t, DecodePayload(f, &p))
	assert.Nil(t, p.Language)
}

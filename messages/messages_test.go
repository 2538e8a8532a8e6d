package messages

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyEnvelope(t *testing.T) {
	raw, err := sonic.Marshal(NewReplyMessage("abc", "Please say your name.", "awaiting_name", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"reply","sessionId":"abc","payload":{"text":"Please say your name.","state":"awaiting_name"}}`, string(raw))
}

func TestErrorEnvelopeWithoutSession(t *testing.T) {
	raw, err := sonic.Marshal(NewErrorMessage("", ErrCodeSessionFailed, "full"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","payload":{"code":"SESSION_FAILED","message":"full"}}`, string(raw))
}

func TestClientTranscript(t *testing.T) {
	var msg ClientMessage
	require.NoError(t, sonic.Unmarshal([]byte(`{"type":"transcript","payload":{"text":"book a","final":false}}`), &msg))
	assert.Equal(t, TypeTranscript, msg.Type)

	var payload TranscriptPayload
	require.NoError(t, sonic.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, TranscriptPayload{Text: "book a"}, payload)
}

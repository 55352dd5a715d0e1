package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredcamaral/slidekit/internal/domain/entities"
)

const origin = "http://localhost:8080"

func receive(t *testing.T, e *Endpoint) entities.Message {
	t.Helper()
	select {
	case msg := <-e.C():
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return entities.Message{}
	}
}

func TestPipe_DeliversInOrderWithOrigin(t *testing.T) {
	host, frame := Pipe(origin, nil)
	defer host.Close()

	for _, path := range []string{"#a", "#b", "#c"} {
		msg, err := entities.NewMessage(entities.MessageSelectElement, entities.SelectElementData{ElementPath: path})
		require.NoError(t, err)
		require.NoError(t, host.Post(msg))
	}

	for _, want := range []string{"#a", "#b", "#c"} {
		msg := receive(t, frame)
		assert.Equal(t, origin, msg.Origin)

		var data entities.SelectElementData
		require.NoError(t, msg.Decode(&data))
		assert.Equal(t, want, data.ElementPath)
	}
}

func TestEndpoint_DropsForeignOrigin(t *testing.T) {
	host, frame := Pipe(origin, nil)
	defer host.Close()

	forged, err := entities.NewMessage(entities.MessageElementSelected, entities.ElementSelectedData{ElementPath: "#evil"})
	require.NoError(t, err)
	forged.Origin = "https://attacker.example"
	require.NoError(t, host.Inject(forged))

	genuine, err := entities.NewMessage(entities.MessageClearSelection, nil)
	require.NoError(t, err)
	require.NoError(t, frame.Post(genuine))

	msg := receive(t, host)
	assert.Equal(t, entities.MessageClearSelection, msg.Type)
	assert.Equal(t, int64(1), host.Dropped())
}

func TestEndpoint_PostAfterClose(t *testing.T) {
	host, frame := Pipe(origin, nil)
	frame.Close()

	msg, err := entities.NewMessage(entities.MessageClearSelection, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, host.Post(msg), ErrClosed)

	_, open := <-host.C()
	assert.False(t, open)
}

package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func validEvent() Event {
	return Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: StageRunStart,
	}
}

func TestEventValidate(t *testing.T) {
	require.NoError(t, validEvent().Validate())

	missing := validEvent()
	missing.RunID = [16]byte{}
	require.Error(t, missing.Validate())

	noTS := validEvent()
	noTS.TS = time.Time{}
	require.Error(t, noTS.Validate())

	badStage := validEvent()
	badStage.Stage = Stage("WHATEVER")
	require.Error(t, badStage.Validate())

	fetch := validEvent()
	fetch.Stage = StageCatalogFetch
	require.Error(t, fetch.Validate())
	fetch.StatusClass = Status2xx
	require.NoError(t, fetch.Validate())

	negDur := validEvent()
	negDur.Dur = -time.Second
	require.Error(t, negDur.Validate())
}

func TestRunUUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	evt := Event{RunID: UUIDToBytes(id)}
	require.Equal(t, id, evt.RunUUID())
}

func TestClassifyStatus(t *testing.T) {
	require.Equal(t, Status2xx, ClassifyStatus(200))
	require.Equal(t, Status2xx, ClassifyStatus(204))
	require.Equal(t, Status3xx, ClassifyStatus(301))
	require.Equal(t, Status4xx, ClassifyStatus(404))
	require.Equal(t, Status5xx, ClassifyStatus(503))
	require.Equal(t, StatusOther, ClassifyStatus(0))
	require.Equal(t, StatusOther, ClassifyStatus(700))
}

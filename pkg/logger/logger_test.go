package logger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEntry(t *testing.T, ch <-chan LogEntry) LogEntry {
	t.Helper()
	select {
	case entry := <-ch:
		return entry
	case <-time.After(time.Second):
		t.Fatal("no log entry received")
		return LogEntry{}
	}
}

func TestSubscribeReceivesEntries(t *testing.T) {
	log := New("logger-test", "test")
	log.SetQuiet(true)

	ch := log.Subscribe()
	log.Infof("branch %s created", "feature")

	entry := receiveEntry(t, ch)
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "branch feature created", entry.Message)
	assert.Nil(t, entry.Fields)
}

func TestQuietModeStillFeedsSubscribers(t *testing.T) {
	log := New("logger-test", "test")
	log.SetQuiet(true)

	ch := log.Subscribe()
	log.Warn("head moved")

	entry := receiveEntry(t, ch)
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "head moved", entry.Message)
}

func TestWithFieldsAttachesFields(t *testing.T) {
	log := New("logger-test", "test")
	log.SetQuiet(true)

	ch := log.Subscribe()
	log.WithFields(map[string]string{
		"validation_id": "v-1",
		"source":        "feature",
	}).Info("validation finished")

	entry := receiveEntry(t, ch)
	assert.Equal(t, "INFO", entry.Level)
	require.NotNil(t, entry.Fields)
	assert.Equal(t, "v-1", entry.Fields["validation_id"])
	assert.Equal(t, "feature", entry.Fields["source"])
}

func TestFullSubscriberNeverBlocksLogging(t *testing.T) {
	log := New("logger-test", "test")
	log.SetQuiet(true)

	ch := log.Subscribe()
	// Channel capacity is 100; overflow entries are dropped, not blocked on
	for i := 0; i < 150; i++ {
		log.Debugf("entry %d", i)
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			assert.Equal(t, 100, count)
			return
		}
	}
}

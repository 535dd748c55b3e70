package statsd_test

import (
	"testing"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"pkg.world.dev/world-engine/assert"

	"github.com/leafley/rovio-match-making/statsd"
)

func TestDefaultClientIsNoOp(t *testing.T) {
	assert.IsType(t, &ddstatsd.NoOpClient{}, statsd.Client())
}

func TestInitRejectsEmptyAddress(t *testing.T) {
	assert.IsError(t, statsd.Init("", nil))
}

func TestEmitHelpersWorkWithoutClient(t *testing.T) {
	statsd.EmitTicketStat("queued")
	statsd.EmitSessionStat("created")
	statsd.EmitSelectionStat(time.Now(), 4)
}

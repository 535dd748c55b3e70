// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so a future migration away from datadog
// only needs to edit this single file.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitTicketStat counts a ticket operation. action is one of "queued",
// "updated" or "cancelled".
func EmitTicketStat(action string) {
	if err := Client().Incr("tickets", []string{"action:" + action}, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit ticket stat: %v", err)
	}
}

// EmitSessionStat counts a session life-cycle event. action is one of
// "created", "claimed" or "closed".
func EmitSessionStat(action string) {
	if err := Client().Incr("sessions", []string{"action:" + action}, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit session stat: %v", err)
	}
}

// EmitSelectionStat times one run of the selection algorithm and records how
// many tickets it matched.
func EmitSelectionStat(start time.Time, matched int) {
	duration := time.Since(start)
	if err := Client().Timing("selection", duration, nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit selection stat: %v", err)
	}
	if err := Client().Count("selection.matched", int64(matched), nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit selection stat: %v", err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("matchmaking"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	// Success! replace the global client
	client = newClient
	return nil
}

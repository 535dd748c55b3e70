package lobby

import (
	"math"
	"sort"
	"time"

	"github.com/leafley/rovio-match-making/types"
)

// poolStats holds the latency statistics of a ticket pool snapshot.
type poolStats struct {
	meanLatency       float64
	standardDeviation float64
}

// computeStats runs Welford's online algorithm over the pool latencies. A
// single pass keeps the variance numerically stable for large pools.
func computeStats(tickets []types.Ticket) poolStats {
	var mean, m2 float64
	n := 0
	for _, ticket := range tickets {
		n++
		delta := ticket.Latency - mean
		mean += delta / float64(n)
		m2 += delta * (ticket.Latency - mean)
	}
	if n == 0 {
		return poolStats{}
	}
	return poolStats{
		meanLatency:       mean,
		standardDeviation: math.Sqrt(m2 / float64(n)),
	}
}

type rankedTicket struct {
	ticket            types.Ticket
	adjustedDeviation float64
	rawDeviation      float64
}

// adjustedDeviation discounts a ticket's latency distance from the pool mean
// by how long it has waited. The cosine ease-out shrinks the penalty smoothly
// from its full value at zero wait to nothing at maxWaitTime, after which the
// ticket is eligible regardless of latency fit.
func adjustedDeviation(latency, mean float64, waitTime, maxWaitTime time.Duration) float64 {
	if waitTime >= maxWaitTime {
		return 0
	}
	if waitTime <= 0 {
		return math.Abs(mean - latency)
	}
	radiansPerNano := math.Pi / (2 * float64(maxWaitTime))
	return math.Abs(mean-latency) * math.Cos(radiansPerNano*float64(waitTime))
}

// rankTickets scores the pool snapshot against its own latency statistics and
// returns the eligible tickets ordered best first. Eligible means the wait-
// adjusted deviation falls within one standard deviation of the mean. Ties on
// the adjusted score go to the ticket with the closer raw latency.
func rankTickets(tickets []types.Ticket, now int64, maxWaitTime time.Duration) (poolStats, []rankedTicket) {
	stats := computeStats(tickets)

	ranked := make([]rankedTicket, 0, len(tickets))
	for _, ticket := range tickets {
		adjusted := adjustedDeviation(ticket.Latency, stats.meanLatency, ticket.WaitTime(now), maxWaitTime)
		if adjusted > stats.standardDeviation {
			continue
		}
		ranked = append(ranked, rankedTicket{
			ticket:            ticket,
			adjustedDeviation: adjusted,
			rawDeviation:      math.Abs(stats.meanLatency - ticket.Latency),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].adjustedDeviation != ranked[j].adjustedDeviation {
			return ranked[i].adjustedDeviation < ranked[j].adjustedDeviation
		}
		return ranked[i].rawDeviation < ranked[j].rawDeviation
	})

	return stats, ranked
}

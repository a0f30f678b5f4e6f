package sensors

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SimulatedFeed is the fixed set of social media messages IncidentEar picks from.
var SimulatedFeed = []string{
	"Stockholm traffic is moving smoothly.",
	"Lovely day in Norrmalm!",
	"ACCIDENT reported near Central Station! Road blocked.",
	"Traffic is normal at Drottninggatan.",
	"Major JAM reported due to construction work.",
	"Clear skies and clear roads in the city.",
	"CRITICAL: Multi-car collision near Kungsträdgården.",
}

// IncidentEar simulates a text classifier over a social media feed.
type IncidentEar struct {
	feed []string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewIncidentEar(logger *zap.Logger) *IncidentEar {
	logger.Info("Text sensor ready", zap.Int("messages", len(SimulatedFeed)))
	return &IncidentEar{
		feed: SimulatedFeed,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *IncidentEar) ProduceIncident(ctx context.Context) (IncidentReading, error) {
	if err := ctx.Err(); err != nil {
		return IncidentReading{}, err
	}
	e.mu.Lock()
	text := e.feed[e.rng.Intn(len(e.feed))]
	e.mu.Unlock()
	return incidentReading(text), nil
}

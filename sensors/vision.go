package sensors

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TrafficEye simulates a traffic camera. With a video feed present the count
// follows a 20 second cycle (quiet for the first 11 seconds, jammed for the
// rest); without one it is uniform in [5, 50].
type TrafficEye struct {
	videoPath string
	hasVideo  bool
	logger    *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewTrafficEye(videoPath string, logger *zap.Logger) *TrafficEye {
	eye := &TrafficEye{
		videoPath: videoPath,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
	if _, err := os.Stat(videoPath); err == nil {
		eye.hasVideo = true
		logger.Info("Vision sensor loading video source", zap.String("path", videoPath))
	} else {
		logger.Warn("Video file not found, using random vehicle counts", zap.String("path", videoPath))
	}
	return eye
}

func (e *TrafficEye) HasVideo() bool { return e.hasVideo }

// VehicleCount returns the number of vehicles seen in the current frame.
func (e *TrafficEye) VehicleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hasVideo {
		if e.now().Unix()%20 > 10 {
			return 45
		}
		return 5
	}
	return 5 + e.rng.Intn(46)
}

func (e *TrafficEye) ProduceCongestion(ctx context.Context) (CongestionReading, error) {
	if err := ctx.Err(); err != nil {
		return CongestionReading{}, err
	}
	return congestionReading(e.VehicleCount()), nil
}

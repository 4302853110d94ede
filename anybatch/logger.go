package anybatch

import "log"

// A Logger logs status messages which are produced while
// running a batched environment.
type Logger interface {
	LogEpisode(batchID string, envIdx int, reward float64, steps int)
	LogReset(batchID string, numReset int)
	LogError(batchID string, err error)
}

// StandardLogger is a Logger which uses the log package.
//
// A Field of name <N> controls whether or not the Log<N>
// method does anything.
type StandardLogger struct {
	Episode bool
	Reset   bool
	Error   bool
}

// LogEpisode logs the result of an episode.
func (s *StandardLogger) LogEpisode(batchID string, envIdx int, reward float64,
	steps int) {
	if s.Episode {
		log.Printf("episode: batch=%s env=%d reward=%f steps=%d", batchID, envIdx,
			reward, steps)
	}
}

// LogReset logs a (possibly partial) reset.
func (s *StandardLogger) LogReset(batchID string, numReset int) {
	if s.Reset {
		log.Printf("reset: batch=%s envs=%d", batchID, numReset)
	}
}

// LogError logs an error returned by a worker.
func (s *StandardLogger) LogError(batchID string, err error) {
	if s.Error {
		log.Printf("error: batch=%s err=%v", batchID, err)
	}
}

package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs, emitting only when the stage changes or the percentage crosses
// a bucket boundary.
type ProgressSampler struct {
	bucketSize int
	lastStage  string
	lastBucket int
}

// NewProgressSampler returns a sampler with buckets of bucketSize percent (default 10).
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}

	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether a progress event for stage at percent should be logged.
func (s *ProgressSampler) ShouldLog(stage string, percent int) bool {
	if s == nil {
		return true
	}

	emit := false

	if stage = strings.TrimSpace(stage); stage != s.lastStage {
		s.lastStage = stage
		s.lastBucket = -1
		emit = true
	}

	if percent > 100 {
		percent = 100
	}

	if b := percent / s.bucketSize; percent >= 0 && b > s.lastBucket {
		s.lastBucket = b
		emit = true
	}

	return emit
}

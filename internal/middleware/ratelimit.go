package middleware

import (
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"
)

// Defaults for per-connection limits.
const (
	DefaultMaxMessageSize    = 64 * 1024
	DefaultMessagesPerSecond = 120
	DefaultBurstSize         = 60
	DefaultMaxPayloadDepth   = 16
	DefaultMaxPayloadKeys    = 2000
)

// RateLimit holds the guard rails applied to every connection.
type RateLimit struct {
	MaxMessageSize    int
	MessagesPerSecond float64
	BurstSize         int
	SendQueueSize     int
	MaxPayloadDepth   int
	MaxPayloadKeys    int
}

// NewRateLimit: creates a new RateLimit configuration
func NewRateLimit(maxMessageSize int, messagesPerSecond float64, burstSize, sendQueueSize int) *RateLimit {
	return &RateLimit{
		MaxMessageSize:    maxMessageSize,
		MessagesPerSecond: messagesPerSecond,
		BurstSize:         burstSize,
		SendQueueSize:     sendQueueSize,
		MaxPayloadDepth:   DefaultMaxPayloadDepth,
		MaxPayloadKeys:    DefaultMaxPayloadKeys,
	}
}

// DefaultRateLimit returns the limits used when nothing is configured.
func DefaultRateLimit() *RateLimit {
	return NewRateLimit(DefaultMaxMessageSize, DefaultMessagesPerSecond, DefaultBurstSize, 0)
}

// NewConnectionLimiter returns a fresh limiter for one connection, or nil
// when MessagesPerSecond is zero and limiting is off.
func (rl *RateLimit) NewConnectionLimiter() *rate.Limiter {
	if rl.MessagesPerSecond <= 0 {
		return nil
	}
	burst := rl.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rl.MessagesPerSecond), burst)
}

// ValidateMessageSize: checks if a message is within the size limit.
// A non-positive limit accepts everything.
func (rl *RateLimit) ValidateMessageSize(msgSize int) bool {
	return rl.MaxMessageSize <= 0 || msgSize <= rl.MaxMessageSize
}

// ValidatePayloadComplexity checks nesting depth and key count of every
// object an edit payload carries before it is fanned out. A list at the top
// level, such as a layer order, is checked element by element so that its
// length is bounded only by MaxMessageSize.
func (rl *RateLimit) ValidatePayloadComplexity(raw json.RawMessage) error {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	fields, ok := data.(map[string]any)
	if !ok {
		return rl.validateObject(data)
	}
	for name, val := range fields {
		items, ok := val.([]any)
		if !ok {
			if err := rl.validateObject(val); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			continue
		}
		for i, item := range items {
			if err := rl.validateObject(item); err != nil {
				return fmt.Errorf("%s[%d]: %w", name, i, err)
			}
		}
	}
	return nil
}

// validateObject applies the depth and key bounds to a single object.
func (rl *RateLimit) validateObject(obj any) error {
	depth, keys := validateComplexity(obj, 0)

	if rl.MaxPayloadDepth > 0 && depth > rl.MaxPayloadDepth {
		return fmt.Errorf("payload nesting too deep: %d levels (max %d)", depth, rl.MaxPayloadDepth)
	}

	if rl.MaxPayloadKeys > 0 && keys > rl.MaxPayloadKeys {
		return fmt.Errorf("payload too complex: %d keys (max %d)", keys, rl.MaxPayloadKeys)
	}

	return nil
}

// validateComplexity: recursively checks depth and counts keys
func validateComplexity(data any, currentDepth int) (int, int) {
	maxDepth := currentDepth
	keyCount := 0

	switch v := data.(type) {
	case map[string]any:
		keyCount = len(v)
		for _, val := range v {
			subDepth, subKeys := validateComplexity(val, currentDepth+1)
			if subDepth > maxDepth {
				maxDepth = subDepth
			}
			keyCount += subKeys
		}
	case []any:
		for _, val := range v {
			subDepth, subKeys := validateComplexity(val, currentDepth+1)
			if subDepth > maxDepth {
				maxDepth = subDepth
			}
			keyCount += subKeys
		}
	}

	return maxDepth, keyCount
}

package persistence

import "github.com/nerrad567/sensor-relay/internal/telemetry"

// ShouldStore reports whether r is significant enough to persist: motion
// detected, a loud sound, or very bright light. Every other reading,
// "Very dark" included, is broadcast but not stored.
func ShouldStore(r telemetry.Reading) bool {
	switch {
	case r.Motion() == telemetry.MotionDetected:
		return true
	case r.Sound() == telemetry.SoundQuiteLoud, r.Sound() == telemetry.SoundVeryLoud:
		return true
	case r.Light() == telemetry.LightVeryBright:
		return true
	default:
		return false
	}
}

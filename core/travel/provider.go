// Package travel provides travel durations between locations per mode.
package travel

// Provider looks up the travel duration in minutes from origin to
// destination with the given mode. Implementations must be safe for
// concurrent reads.
type Provider interface {
	TravelTime(origin, destination, mode string) (float64, bool)
	HasLocation(location string) bool
}

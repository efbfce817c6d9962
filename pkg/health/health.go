// Package health implements the connectivity state machine, capability
// gating, and clock-drift tracking that decide what a device is allowed
// to do while partially or fully offline.
package health

import "time"

// ConnState is the device's connectivity state, a pure function of how
// long it has been since last contact with the relay and whether its
// tokens remain valid.
type ConnState string

const (
	Online           ConnState = "online"
	ShortOffline     ConnState = "short_offline"
	MediumOffline    ConnState = "medium_offline"
	LongOffline      ConnState = "long_offline"
	ReauthRequired   ConnState = "reauth_required"
)

// Thresholds configures the offline-duration boundaries between states.
type Thresholds struct {
	ShortOfflineMax  time.Duration
	MediumOfflineMax time.Duration
}

// DefaultThresholds sets the standard offline windows: under 5 minutes is
// a short blip, under 24 hours is a medium outage, beyond that is long.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShortOfflineMax:  5 * time.Minute,
		MediumOfflineMax: 24 * time.Hour,
	}
}

// Evaluate computes connectivity state from elapsed time since last
// online contact and token validity. A device with an invalid refresh
// token is always ReauthRequired regardless of elapsed time; one with a
// merely-expired access token but valid refresh token still degrades
// through the offline ladder (it can silently refresh once reachable).
func Evaluate(sinceLastOnline time.Duration, accessTokenValid, refreshTokenValid bool, th Thresholds) ConnState {
	if !refreshTokenValid {
		return ReauthRequired
	}
	if accessTokenValid && sinceLastOnline <= 0 {
		return Online
	}
	switch {
	case sinceLastOnline <= th.ShortOfflineMax:
		return ShortOffline
	case sinceLastOnline <= th.MediumOfflineMax:
		return MediumOffline
	default:
		return LongOffline
	}
}

// Capabilities is the set of operations a device is permitted given its
// current ConnState.
type Capabilities struct {
	CanRead   bool
	CanWrite  bool
	CanSearch bool
	CanSync   bool
	CanUseLLM bool
}

// CapabilitiesFor returns the capability gate for a connectivity state.
// Reading and local search always work off the on-device store; writes
// are accepted locally and queued (see OfflineQueue) in every state except
// ReauthRequired, which blocks them; otherwise only network-dependent
// features (sync itself, LLM calls) are gated off as the device drifts
// further offline.
func CapabilitiesFor(state ConnState) Capabilities {
	switch state {
	case Online:
		return Capabilities{CanRead: true, CanWrite: true, CanSearch: true, CanSync: true, CanUseLLM: true}
	case ShortOffline:
		return Capabilities{CanRead: true, CanWrite: true, CanSearch: true, CanSync: false, CanUseLLM: true}
	case MediumOffline:
		return Capabilities{CanRead: true, CanWrite: true, CanSearch: true, CanSync: false, CanUseLLM: false}
	case LongOffline:
		return Capabilities{CanRead: true, CanWrite: true, CanSearch: true, CanSync: false, CanUseLLM: false}
	case ReauthRequired:
		return Capabilities{CanRead: true, CanWrite: false, CanSearch: true, CanSync: false, CanUseLLM: false}
	default:
		return Capabilities{}
	}
}

// DriftTracker maintains a per-device exponential moving average of
// clock drift (device clock minus relay clock, in milliseconds), the
// estimate pkg/changeset.ApplyDriftAdjustment takes. pkg/syncclient
// stamps change sets with the unadjusted local clock and does not consult
// a tracker.
type DriftTracker struct {
	weight float64
	drift  map[string]int64
}

// NewDriftTracker returns a tracker using a 0.2 EMA weight.
func NewDriftTracker() *DriftTracker {
	return &DriftTracker{weight: 0.2, drift: map[string]int64{}}
}

// Observe folds a newly measured drift sample (device_time - server_time,
// in ms) for deviceID into its running estimate.
func (d *DriftTracker) Observe(deviceID string, sampleMs int64) {
	prev, ok := d.drift[deviceID]
	if !ok {
		d.drift[deviceID] = sampleMs
		return
	}
	d.drift[deviceID] = int64(d.weight*float64(sampleMs) + (1-d.weight)*float64(prev))
}

// DriftMs returns deviceID's current estimated clock drift in
// milliseconds, or 0 if never observed.
func (d *DriftTracker) DriftMs(deviceID string) int64 {
	return d.drift[deviceID]
}

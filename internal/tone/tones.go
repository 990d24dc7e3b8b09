package tone

import (
	"time"

	"github.com/jmylchreest/telnotify/internal/model"
)

// TimeoutBuffer is added to a tone's length before the player gives up
// waiting for it.
const TimeoutBuffer = 20 * time.Millisecond

// Relative volumes applied on top of the configured volume.
const (
	RelativeVolumeHigh = 0.80
	RelativeVolumeLow  = 0.50
)

// Class groups tones that must not play at the same time.
type Class int

const (
	// ClassInCall covers tones played when a call ends.
	ClassInCall Class = iota
	// ClassSignalInfo covers tones requested by the network via signal info.
	ClassSignalInfo
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassInCall:
		return "in-call"
	case ClassSignalInfo:
		return "signal-info"
	default:
		return "unknown"
	}
}

// Segment is one step of a cadence: the listed frequencies are mixed
// for On, followed by Off of silence.
type Segment struct {
	Freqs []float64
	On    time.Duration
	Off   time.Duration
}

// Spec describes how a tone sounds and how long it plays.
// Segments repeat until Length elapses. Volume is relative, 0.0-1.0.
type Spec struct {
	Segments []Segment
	Length   time.Duration
	Volume   float64
}

// cycle returns the length of one pass through the segments.
func (s Spec) cycle() time.Duration {
	var d time.Duration
	for _, seg := range s.Segments {
		d += seg.On + seg.Off
	}
	return d
}

var (
	dualBusy = []float64{480, 620}
	prompt   = []float64{400, 1200}
	alert    = []float64{1150, 770}
)

var specs = map[model.ToneID]Spec{
	model.ToneBusy: {
		Segments: []Segment{{Freqs: dualBusy, On: 500 * time.Millisecond, Off: 500 * time.Millisecond}},
		Length:   4000 * time.Millisecond,
		Volume:   RelativeVolumeHigh,
	},
	model.ToneCongestion: {
		Segments: []Segment{{Freqs: dualBusy, On: 250 * time.Millisecond, Off: 250 * time.Millisecond}},
		Length:   4000 * time.Millisecond,
		Volume:   RelativeVolumeHigh,
	},
	model.ToneCallEnded: {
		Segments: []Segment{{Freqs: prompt, On: 200 * time.Millisecond}},
		Length:   200 * time.Millisecond,
		Volume:   RelativeVolumeHigh,
	},
	model.ToneOutOfService: {
		Segments: []Segment{
			{Freqs: []float64{1480}, On: 125 * time.Millisecond},
			{Freqs: []float64{1397}, On: 125 * time.Millisecond},
			{Freqs: []float64{784}, On: 125 * time.Millisecond, Off: 125 * time.Millisecond},
		},
		Length: 4000 * time.Millisecond,
		Volume: RelativeVolumeLow,
	},
	model.ToneReorder: {
		Segments: []Segment{{Freqs: dualBusy, On: 250 * time.Millisecond, Off: 250 * time.Millisecond}},
		Length:   4000 * time.Millisecond,
		Volume:   RelativeVolumeHigh,
	},
	model.ToneIntercept: {
		Segments: []Segment{
			{Freqs: []float64{440}, On: 250 * time.Millisecond},
			{Freqs: []float64{620}, On: 250 * time.Millisecond},
		},
		Length: 500 * time.Millisecond,
		Volume: RelativeVolumeHigh,
	},
	model.ToneCallDrop: {
		Segments: []Segment{
			{Freqs: []float64{1480}, On: 125 * time.Millisecond},
			{Freqs: []float64{1397}, On: 125 * time.Millisecond},
			{Freqs: []float64{784}, On: 125 * time.Millisecond},
		},
		Length: 375 * time.Millisecond,
		Volume: RelativeVolumeLow,
	},
	model.ToneUnobtainable: {
		Segments: []Segment{
			{Freqs: []float64{950}, On: 330 * time.Millisecond},
			{Freqs: []float64{1400}, On: 330 * time.Millisecond},
			{Freqs: []float64{1800}, On: 330 * time.Millisecond, Off: 1000 * time.Millisecond},
		},
		Length: 4000 * time.Millisecond,
		Volume: RelativeVolumeHigh,
	},
	model.ToneCallWaiting: {
		Segments: []Segment{{Freqs: []float64{440}, On: 300 * time.Millisecond, Off: 9700 * time.Millisecond}},
		Length:   10 * time.Second,
		Volume:   RelativeVolumeHigh,
	},
	model.ToneSignalAlert: {
		Segments: []Segment{{Freqs: alert, On: 400 * time.Millisecond, Off: 200 * time.Millisecond}},
		Length:   1800 * time.Millisecond,
		Volume:   RelativeVolumeHigh,
	},
	model.ToneSignalAbbrAlert: {
		Segments: []Segment{{Freqs: alert, On: 400 * time.Millisecond}},
		Length:   400 * time.Millisecond,
		Volume:   RelativeVolumeHigh,
	},
	model.ToneSignalPip: {
		Segments: []Segment{{Freqs: []float64{480}, On: 100 * time.Millisecond, Off: 100 * time.Millisecond}},
		Length:   800 * time.Millisecond,
		Volume:   RelativeVolumeHigh,
	},
}

// Lookup returns the spec for id.
func Lookup(id model.ToneID) (Spec, bool) {
	s, ok := specs[id]
	return s, ok
}

// ForDisconnect returns the tone to play when a call ends for cause.
// ToneNone means no tone.
func ForDisconnect(cause model.DisconnectCause) model.ToneID {
	switch cause {
	case model.CauseBusy:
		return model.ToneBusy
	case model.CauseCongestion:
		return model.ToneCongestion
	case model.CauseReorder:
		return model.ToneReorder
	case model.CauseIntercept:
		return model.ToneIntercept
	case model.CauseCallDrop:
		return model.ToneCallDrop
	case model.CauseOutOfService:
		return model.ToneOutOfService
	case model.CauseUnobtainable:
		return model.ToneUnobtainable
	case model.CauseNormal, model.CauseLocal, model.CauseErrorUnspecified:
		return model.ToneCallEnded
	default:
		return model.ToneNone
	}
}

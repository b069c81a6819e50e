package rewrite

// Stage identifies the phase of a file rewrite being reported.
type Stage uint8

const (
	StageLoad Stage = iota
	StageLocate
	StageApply
	StageWrite
)

// Status of a stage for one file.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusSkipped
	StatusError
)

// Event is one progress notification. File is the plan-relative path;
// an empty File carries a run-wide status change.
type Event struct {
	File   string
	Stage  Stage
	Status Status
	Detail string
}

// Sink receives progress events.
type Sink interface {
	Publish(Event)
}

// ChannelSink forwards events into a channel, for the progress UI.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) Publish(ev Event) {
	s.Ch <- ev
}

package app

import (
	"io"

	"github.com/lexide/lexide/internal/config"
	"github.com/lexide/lexide/internal/event"
	"github.com/lexide/lexide/internal/logging"
	"github.com/lexide/lexide/internal/message"
	"github.com/lexide/lexide/internal/sandbox"
	"github.com/lexide/lexide/internal/transport"
)

// ActionEvent is the envelope action used for state-change notifications
// pushed to peripheral surfaces.
const ActionEvent = "event"

// TargetUI addresses envelopes at the peripheral surfaces observing the
// broadcast stream.
const TargetUI = "ui"

// broadcastEvents are the bus events mirrored onto the broadcast stream.
var broadcastEvents = []string{
	EventOptionsChanged,
	EventInstalled,
	EventUpdated,
	config.EventConfigChanged,
	sandbox.EventPluginLoaded,
	sandbox.EventSelectedPlugin,
}

// broadcaster mirrors coordinator state changes onto a framed envelope
// stream so out-of-process surfaces can observe them.
type broadcaster struct {
	fw     *transport.FrameWriter
	log    logging.Logger
	unsubs []func()
}

func newBroadcaster(w io.Writer, bus *event.Bus, log logging.Logger) (*broadcaster, error) {
	b := &broadcaster{fw: transport.NewFrameWriter(w), log: log}

	for _, name := range broadcastEvents {
		unsub, err := bus.On(name, b.forward(name))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.unsubs = append(b.unsubs, unsub)
	}
	return b, nil
}

// forward builds the bus handler mirroring one event name. Write failures
// are logged, not propagated; a dead observer must not break local emission.
func (b *broadcaster) forward(name string) event.Handler {
	return func(data any) error {
		env := message.Envelope{
			Action: ActionEvent,
			Target: TargetUI,
			Sender: message.ContextCoordinator,
		}
		env, err := env.WithParams(map[string]any{"event": name, "data": data})
		if err != nil {
			b.log.Warn("broadcast payload not encodable", "event", name, "error", err)
			return nil
		}
		if err := b.fw.WriteEnvelope(env); err != nil {
			b.log.Warn("broadcast write failed", "event", name, "error", err)
		}
		return nil
	}
}

func (b *broadcaster) Close() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
}

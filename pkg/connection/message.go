package connection

import (
	"fmt"

	"github.com/medkit-core/medkit-go/pkg/identity"
	"github.com/medkit-core/medkit-go/pkg/port"
	"github.com/medkit-core/medkit-go/pkg/wire"
)

// MessageProtocol identifies connections exchanging wire.Message units.
const MessageProtocol = "medkit-cbor/1"

// MessageHandler receives decoded messages.
type MessageHandler interface {
	HandleMessage(c *Connection, m *wire.Message)
}

// MessageHandlerFunc adapts a function to MessageHandler.
type MessageHandlerFunc func(c *Connection, m *wire.Message)

// HandleMessage implements MessageHandler.
func (f MessageHandlerFunc) HandleMessage(c *Connection, m *wire.Message) { f(c, m) }

// messageCodec decodes inbound data units into messages. Undecodable units
// are logged and dropped; the connection stays up.
type messageCodec struct {
	next MessageHandler
}

func (h *messageCodec) OnMessage(c *Connection, data []byte) {
	m, err := wire.DecodeMessage(data)
	if err != nil {
		c.logError("decode message", err)
		return
	}
	if h.next != nil {
		h.next.HandleMessage(c, m)
	}
}

func (h *messageCodec) OnClosed(*Connection, error) {}

// NewMessageFactory returns a factory for MessageProtocol delivering decoded
// messages to h.
func NewMessageFactory(priority int, h MessageHandler) Factory {
	return Factory{
		Protocol: MessageProtocol,
		Priority: priority,
		New: func(p port.Port, d Device, principal *identity.Principal) *Connection {
			return New(MessageProtocol, p, d, principal, WithHandler(&messageCodec{next: h}))
		},
	}
}

// SendMessage encodes m and sends it on c.
func SendMessage(c *Connection, m *wire.Message) error {
	data, err := wire.EncodeMessage(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return c.Send(data)
}

var _ Handler = (*messageCodec)(nil)

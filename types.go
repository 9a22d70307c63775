package nsq

import "github.com/jayshah1819/nsq-j/types"

// Re-export types from the internal types package.
//
// This gives callers a stable, importable "nsq.Message", "nsq.Logger", etc.
// without depending on the types subpackage directly, and lets internal
// packages (balance, subscription, internal/*) depend on types without
// depending on this root package, avoiding an import cycle.
type (
	Message        = types.Message
	MessageID      = types.MessageID
	HostAndPort    = types.HostAndPort
	SubscriptionID = types.SubscriptionID
	Error          = types.Error
	Kind           = types.Kind
)

// Re-export handler and dependency interfaces.
type (
	MessageHandler           = types.MessageHandler
	MessageHandlerFunc       = types.MessageHandlerFunc
	MessageDataHandler       = types.MessageDataHandler
	MessageDataHandlerFunc   = types.MessageDataHandlerFunc
	FailedMessageHandler     = types.FailedMessageHandler
	FailedMessageHandlerFunc = types.FailedMessageHandlerFunc
	Logger                   = types.Logger
	MetricsCollector         = types.MetricsCollector
)

// Re-export error Kind constants.
const (
	KindInvalidArgument          = types.KindInvalidArgument
	KindTransport                = types.KindTransport
	KindProtocol                 = types.KindProtocol
	KindPublish                  = types.KindPublish
	KindAtomicBatchPublishFailed = types.KindAtomicBatchPublishFailed
	KindNoNodesAvailable         = types.KindNoNodesAvailable
	KindLookupFailure            = types.KindLookupFailure
)

// ParseHostAndPort re-exports types.ParseHostAndPort for callers building node lists from strings.
func ParseHostAndPort(s string, defaultPort uint16) (HostAndPort, error) {
	return types.ParseHostAndPort(s, defaultPort)
}

// FromParts re-exports types.FromParts for callers building node lists from an already-split host and port.
func FromParts(host string, port uint16) HostAndPort {
	return types.FromParts(host, port)
}

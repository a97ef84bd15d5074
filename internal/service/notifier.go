package service

// Realtime event names.
const (
	EventConversationUpdated = "conversation_updated"
	EventNewMessage          = "new_message"
)

// Notifier pushes an event to every open session of one operator. Delivery
// is best effort.
type Notifier interface {
	Notify(operatorID, event string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, interface{}) {}

func notifyPersisted(n Notifier, operatorID string, conv interface{}, msg interface{}) {
	if operatorID == "" {
		return
	}
	n.Notify(operatorID, EventConversationUpdated, conv)
	n.Notify(operatorID, EventNewMessage, msg)
}

package dto

// InboundMessage is one mail transaction held in memory between DATA and processing.
type InboundMessage struct {
	RemoteAddr string
	Helo       string
	From       string
	AliasKeys  []string
	Data       []byte
}

// PrimaryAliasKey returns the first captured alias key. Only one tenant is associated
// with a message even when the envelope named several recipients.
func (m *InboundMessage) PrimaryAliasKey() (string, bool) {
	if m == nil || len(m.AliasKeys) == 0 {
		return "", false
	}
	return m.AliasKeys[0], true
}

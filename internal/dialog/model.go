package dialog

type State string

const (
	StateIdle      State = "idle"
	StateViewing   State = "viewing"    // an extract is active, drill-down available
	StateAwaitFile State = "await_file" // asked for an upload, nothing active yet
)

// Payload keys.
const (
	KeyDigest   = "digest"
	KeyFileName = "file_name"
	KeyLastMID  = "last_mid"
)

type Payload map[string]any

type Item struct {
	ChatID  int64
	State   State
	Payload Payload
}

// Digest returns the content digest of the chat's active extract.
func (it *Item) Digest() (string, bool) {
	if it == nil {
		return "", false
	}
	s, ok := GetString(it.Payload, KeyDigest)
	return s, ok && s != ""
}

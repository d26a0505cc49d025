package llmcall

import (
	"github.com/jackzampolin/ieltsmeta/internal/providers"
)

// Recorder handles fire-and-forget LLM call recording into a Store.
type Recorder struct {
	store *Store
}

// NewRecorder creates a new LLM call recorder.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Record captures an LLM call. A nil Recorder or store records nothing.
func (r *Recorder) Record(result *providers.ChatResult, opts RecordOptions) *Call {
	if r == nil || r.store == nil {
		return nil
	}

	call := FromChatResult(result, opts)
	if call != nil {
		r.store.Add(call)
	}
	return call
}

// RecordCall captures an already-constructed Call.
func (r *Recorder) RecordCall(call *Call) {
	if r == nil || r.store == nil || call == nil {
		return
	}
	r.store.Add(call)
}

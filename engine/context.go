package engine

import "context"

// combineContext derives a context from session (which carries backend
// values such as the CDP target) that is also canceled when op is done.
func combineContext(session, op context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(session)
	stop := context.AfterFunc(op, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}

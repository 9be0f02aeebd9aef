package wrap

import "net/http"

// Handler is an endpoint. It answers one request with a result that a
// serializer or the host adapter turns into a response.
type Handler func(r *http.Request) (any, error)

// ViewHandler is an endpoint that takes one extracted view of the request
// as its first argument.
type ViewHandler[V any] func(view V, r *http.Request) (any, error)

// Decorator wraps a Handler with one request or response stage.
type Decorator func(Handler) Handler

// Chain applies decorators around h. The first decorator is outermost, so
// Chain(h, Catch, JSONResponse) is Catch(JSONResponse(h)).
func Chain(h Handler, decorators ...Decorator) Handler {
	for i := len(decorators) - 1; i >= 0; i-- {
		h = decorators[i](h)
	}
	return h
}

// Reply is a (payload, status) result. Reply{} and Reply{payload} are
// accepted and default the status to 200; elements past the second are
// ignored.
type Reply []any

// Status returns a Reply with an explicit status code.
func Status(payload any, code int) Reply {
	return Reply{payload, code}
}

package wrap

// Test-only exports for internal functions.
var (
	EncodeJSON       = encodeJSON
	NormalizeMethods = normalizeMethods
	HandlerName      = handlerName
	ErrorTrace       = errorTrace
)

// NextSeq exposes the router's name sequence.
func (r *Router) NextSeq() uint64 { return r.nextSeq() }

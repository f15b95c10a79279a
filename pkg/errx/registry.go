package errx

import "sync"

// Registry holds the error codes of one domain under a common prefix
type Registry struct {
	prefix string
	mu     sync.RWMutex
	codes  map[string]definition
}

type definition struct {
	typ     Type
	status  int
	message string
}

// NewRegistry creates a registry; codes are rendered as PREFIX_CODE
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		codes:  make(map[string]definition),
	}
}

// Register declares a code and returns its fully qualified name
func (r *Registry) Register(code string, t Type, httpStatus int, message string) string {
	full := r.prefix + "_" + code
	r.mu.Lock()
	r.codes[full] = definition{typ: t, status: httpStatus, message: message}
	r.mu.Unlock()
	return full
}

// New builds an error from a registered code. Unknown codes become internal errors.
func (r *Registry) New(code string) *Error {
	r.mu.RLock()
	def, ok := r.codes[code]
	r.mu.RUnlock()
	if !ok {
		return &Error{
			Code:       code,
			Message:    "unregistered error code",
			Type:       TypeInternal,
			HTTPStatus: defaultStatus(TypeInternal),
		}
	}
	return &Error{
		Code:       code,
		Message:    def.message,
		Type:       def.typ,
		HTTPStatus: def.status,
	}
}

// NewWithCause builds an error from a registered code wrapping err
func (r *Registry) NewWithCause(code string, err error) *Error {
	return r.New(code).WithCause(err)
}

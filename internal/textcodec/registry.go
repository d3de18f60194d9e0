package textcodec

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Opcode names.
const (
	OpEncode         = "textEncoder/encode"
	OpEncodeInto     = "textEncoder/encodeInto"
	OpDecode         = "textEncoder/decode"
	OpNormalizeLabel = "textEncoder/normalizeLabel"
	OpNewDecoder     = "textEncoder/newDecoder"
	OpDecodeStream   = "textEncoder/decodeStream"
	OpCleanupDecoder = "textEncoder/cleanupDecoder"
)

// Dispatcher performs an operation by opcode name.
type Dispatcher interface {
	PerformOp(op string, args ...any) (any, error)
}

// OpFunc handles one opcode.
type OpFunc func(args ...any) (any, error)

// Observer is told about every completed operation.
type Observer interface {
	OpCompleted(op string, err error)
}

// Registry is the in-process dispatch surface. It also owns the table of
// streaming decoders created through textEncoder/newDecoder.
type Registry struct {
	ops      map[string]OpFunc
	logger   *zap.Logger
	observer Observer

	mu       sync.Mutex
	decoders map[uuid.UUID]*streamDecoder
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver reports completed operations to o.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// NewRegistry creates a registry with every text opcode installed.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:   zap.NewNop(),
		decoders: make(map[uuid.UUID]*streamDecoder),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.ops = map[string]OpFunc{
		OpEncode:         opEncode,
		OpEncodeInto:     opEncodeInto,
		OpDecode:         opDecode,
		OpNormalizeLabel: opNormalizeLabel,
		OpNewDecoder:     r.opNewDecoder,
		OpDecodeStream:   r.opDecodeStream,
		OpCleanupDecoder: r.opCleanupDecoder,
	}
	return r
}

// PerformOp dispatches op. Unknown opcodes fail with a TypeError.
func (r *Registry) PerformOp(op string, args ...any) (any, error) {
	fn, ok := r.ops[op]
	if !ok {
		err := typeErrorf("unknown op %s", op)
		r.complete(op, err)
		return nil, err
	}
	result, err := fn(args...)
	r.complete(op, err)
	return result, err
}

// Ops returns the installed opcode names.
func (r *Registry) Ops() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	return names
}

// OpenDecoders reports how many streaming decoders are still registered.
func (r *Registry) OpenDecoders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.decoders)
}

func (r *Registry) complete(op string, err error) {
	if err != nil {
		r.logger.Debug("text op failed", zap.String("op", op), zap.Error(err))
	}
	if r.observer != nil {
		r.observer.OpCompleted(op, err)
	}
}

func (r *Registry) opNewDecoder(args ...any) (any, error) {
	opts, err := argAt[DecoderOptions](args, 0, "options")
	if err != nil {
		return nil, err
	}
	dec, err := newStreamDecoder(opts)
	if err != nil {
		return nil, err
	}
	id := uuid.New()

	r.mu.Lock()
	r.decoders[id] = dec
	r.mu.Unlock()
	return id.String(), nil
}

func (r *Registry) opDecodeStream(args ...any) (any, error) {
	sa, err := argAt[StreamArgs](args, 0, "args")
	if err != nil {
		return nil, err
	}
	dec, err := r.decoder(sa.DecoderID)
	if err != nil {
		return nil, err
	}
	return dec.decode(sa.Bytes, !sa.Stream)
}

func (r *Registry) opCleanupDecoder(args ...any) (any, error) {
	raw, err := argAt[string](args, 0, "decoderId")
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errDecoderNotFound()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.decoders[id]; !ok {
		return nil, errDecoderNotFound()
	}
	delete(r.decoders, id)
	return nil, nil
}

func (r *Registry) decoder(raw string) (*streamDecoder, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, errDecoderNotFound()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	dec, ok := r.decoders[id]
	if !ok {
		return nil, errDecoderNotFound()
	}
	return dec, nil
}

func errDecoderNotFound() *OpError {
	return typeErrorf("Text decoder resource not found")
}

// argAt extracts args[i] as T. A missing argument yields T's zero value.
func argAt[T any](args []any, i int, name string) (T, error) {
	var zero T
	if i >= len(args) || args[i] == nil {
		return zero, nil
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, typeErrorf("invalid argument %q: got %T", name, args[i])
	}
	return v, nil
}

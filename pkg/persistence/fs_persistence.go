package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/bvweerd/wgtunnel/pkg/stateful"
)

// Persistence errors.
var (
	// ErrStoreUnavailable is returned when the store reports it is not mounted.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrEmptyDocument is returned when a value serialises to nothing.
	ErrEmptyDocument = errors.New("empty document")
)

// Option configures an FSPersistence.
type Option func(*options)

type options struct {
	logger *slog.Logger
	codec  Codec
}

// WithLogger sets the logger used for load and save diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCodec sets the document codec. JSONCodec is used by default.
func WithCodec(codec Codec) Option {
	return func(o *options) { o.codec = codec }
}

// FSPersistence binds a stateful.Service to one document path on an FS.
type FSPersistence[T any] struct {
	reader  stateful.Reader[T]
	updater stateful.Updater[T]
	service *stateful.Service[T]
	fs      FS
	path    string
	codec   Codec
	logger  *slog.Logger

	mu        sync.Mutex
	handlerID stateful.HandlerID
}

// New creates an FSPersistence for the document at path and registers its
// persist handler on service.
func New[T any](
	reader stateful.Reader[T],
	updater stateful.Updater[T],
	service *stateful.Service[T],
	fs FS,
	path string,
	opts ...Option,
) *FSPersistence[T] {
	o := options{codec: JSONCodec{}}
	for _, opt := range opts {
		opt(&o)
	}

	p := &FSPersistence[T]{
		reader:  reader,
		updater: updater,
		service: service,
		fs:      fs,
		path:    path,
		codec:   o.codec,
		logger:  o.logger,
	}
	p.EnableUpdateHandler()
	return p
}

// Path returns the document path.
func (p *FSPersistence[T]) Path() string {
	return p.path
}

// LoadFromStore restores the service value from the document. Any failure
// along the way leaves the service holding the factory defaults. A missing
// or unreadable document is replaced by the defaults when the store is
// available.
func (p *FSPersistence[T]) LoadFromStore() {
	if !p.available() {
		p.warnLog("settings store unavailable, using defaults", "path", p.path)
		p.applyDefaults()
		return
	}

	root, err := p.readDocument()
	if err == nil {
		p.service.UpdateWithoutPropagation(root, p.updater)
		p.debugLog("settings loaded", "path", p.path, "codec", p.codec.Name())
		return
	}

	p.debugLog("settings load fell back to defaults", "path", p.path, "error", err)
	p.applyDefaults()
	if err := p.SaveToStore(); err != nil {
		p.warnLog("failed to write default settings", "path", p.path, "error", err)
	}
}

func (p *FSPersistence[T]) readDocument() (stateful.Object, error) {
	f, err := p.fs.Open(p.path, ModeRead)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyDocument
	}

	return p.codec.Unmarshal(data)
}

// SaveToStore writes the live value to the document, creating missing parent
// directories on the way.
func (p *FSPersistence[T]) SaveToStore() error {
	if !p.available() {
		return ErrStoreUnavailable
	}

	root := p.service.ReadObject(p.reader)
	if len(root) == 0 {
		return ErrEmptyDocument
	}
	data, err := p.codec.Marshal(root)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.path, err)
	}
	if len(data) == 0 {
		return ErrEmptyDocument
	}

	p.mkdirs()

	f, err := p.fs.Open(p.path, ModeWrite)
	if err != nil {
		return fmt.Errorf("open %s: %w", p.path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", p.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p.path, err)
	}
	return nil
}

func (p *FSPersistence[T]) available() bool {
	return p.fs != nil && p.fs.Exists("/")
}

// mkdirs creates every directory prefix of path that does not exist yet.
// Mkdir failures surface as an Open failure afterwards.
func (p *FSPersistence[T]) mkdirs() {
	for i := 1; i < len(p.path); i++ {
		if p.path[i] != '/' {
			continue
		}
		dir := p.path[:i]
		if !p.fs.Exists(dir) {
			_ = p.fs.Mkdir(dir)
		}
	}
}

// EnableUpdateHandler registers the persist handler if it is not registered.
func (p *FSPersistence[T]) EnableUpdateHandler() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handlerID == 0 {
		p.handlerID = p.service.AddUpdateHandler(p.persist)
	}
}

// DisableUpdateHandler unregisters the persist handler if it is registered.
func (p *FSPersistence[T]) DisableUpdateHandler() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handlerID != 0 {
		p.service.RemoveUpdateHandler(p.handlerID)
		p.handlerID = 0
	}
}

// HandlerEnabled reports whether the persist handler is registered.
func (p *FSPersistence[T]) HandlerEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handlerID != 0
}

func (p *FSPersistence[T]) persist() {
	if err := p.SaveToStore(); err != nil {
		if p.logger != nil {
			p.logger.Error("settings save failed, persistence disabled", "path", p.path, "error", err)
		}
		p.DisableUpdateHandler()
	}
}

func (p *FSPersistence[T]) applyDefaults() {
	p.service.UpdateWithoutPropagation(stateful.Object{}, p.updater)
}

func (p *FSPersistence[T]) debugLog(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *FSPersistence[T]) warnLog(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

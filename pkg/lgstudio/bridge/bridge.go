// Package bridge keeps a store in sync with the backend workflow resource.
//
// A Bridge owns no graph state of its own. Load replaces the store's
// contents, Save serializes the whole graph with full-replace semantics,
// and the run operations feed backend events into the store's run state.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/lgstudio/pkg/lgstudio/api"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/nodetype"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/observability"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/resource"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/store"
	"github.com/randalmurphal/lgstudio/pkg/lgstudio/workflow"
)

// Sentinel errors.
var (
	// ErrNotSaved is returned by operations that need a server-side ID.
	ErrNotSaved = errors.New("workflow has not been saved")

	// ErrNoThread is returned by Resume when no run has started.
	ErrNoThread = errors.New("no run thread to resume")
)

// LoadError is returned when a workflow cannot be fetched or decoded.
// The store is left as it was.
type LoadError struct {
	ID  string
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load workflow %s: %v", e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Backend is the subset of the REST client used by a Bridge.
type Backend interface {
	Create(ctx context.Context, req api.CreateRequest) (api.Created, error)
	CreateFromTemplate(ctx context.Context, templateID, name string, spaceID *int) (api.Created, error)
	Get(ctx context.Context, id string) (api.Record, error)
	Update(ctx context.Context, id string, req api.UpdateRequest) error
	Delete(ctx context.Context, id string) error
	Run(ctx context.Context, id string, req api.RunRequest) (api.RunResponse, error)
	Stream(ctx context.Context, id string, req api.RunRequest, fn func(workflow.StreamEvent) error) error
	Resume(ctx context.Context, id string, req api.ResumeRequest) (api.ResumeResponse, error)
	State(ctx context.Context, id, threadID string) (api.StateResponse, error)
	History(ctx context.Context, id, threadID string) ([]api.Checkpoint, error)
	NodeTypes(ctx context.Context) ([]nodetype.Info, error)
	Templates(ctx context.Context) ([]api.Template, error)
	Validate(ctx context.Context, doc api.Document) (workflow.Report, error)
}

var _ Backend = (*api.Client)(nil)

// newThreadID names the thread of a run started without one.
var newThreadID = uuid.NewString

// Bridge connects one store to one backend.
type Bridge struct {
	backend Backend
	store   store.Store
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	spaceID *int

	nodeTypes *resource.Loader[[]nodetype.Spec]
	templates *resource.Loader[[]api.Template]
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Nil disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(b *Bridge) { b.metrics = m }
}

// WithSpanManager sets the span manager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(b *Bridge) { b.spans = s }
}

// WithSpaceID places newly created workflows in a space.
func WithSpaceID(id int) Option {
	return func(b *Bridge) { b.spaceID = &id }
}

// New creates a bridge between backend and s.
func New(backend Backend, s store.Store, opts ...Option) *Bridge {
	b := &Bridge{
		backend: backend,
		store:   s,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(b)
	}
	b.nodeTypes = resource.New[[]nodetype.Spec](b.fetchNodeTypes)
	b.templates = resource.New[[]api.Template](backend.Templates)
	return b
}

// Store returns the store the bridge writes to.
func (b *Bridge) Store() store.Store {
	return b.store
}

// Load fetches a workflow and replaces the store's contents with it.
func (b *Bridge) Load(ctx context.Context, id string) error {
	ctx, span := b.spans.StartLoadSpan(ctx, id)
	w, err := b.fetch(ctx, id)
	b.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogLoadError(b.logger, id, err)
		return &LoadError{ID: id, Err: err}
	}

	b.store.Replace(w)
	observability.LogLoad(b.logger, w.ID, len(w.Nodes), len(w.Edges))
	return nil
}

func (b *Bridge) fetch(ctx context.Context, id string) (workflow.Workflow, error) {
	rec, err := b.backend.Get(ctx, id)
	if err != nil {
		return workflow.Workflow{}, err
	}
	doc, err := rec.Document()
	if err != nil {
		return workflow.Workflow{}, err
	}

	w := workflow.New()
	w.ID = rec.ID
	if w.ID == "" {
		w.ID = id
	}
	if rec.Name != "" {
		w.Name = rec.Name
	}
	w.Description = rec.Description
	w.Nodes, w.Edges = Decode(doc)
	if doc.Viewport.Zoom != 0 {
		w.Viewport = doc.Viewport
	}
	return w, nil
}

// NewWorkflow discards the current graph and starts an unsaved one.
func (b *Bridge) NewWorkflow(name string) {
	b.store.Reset()
	if name != "" {
		b.store.SetWorkflowMeta("", name, "")
	}
}

// CreateFromTemplate instantiates a preset on the backend and loads it.
func (b *Bridge) CreateFromTemplate(ctx context.Context, templateID, name string) (string, error) {
	created, err := b.backend.CreateFromTemplate(ctx, templateID, name, b.spaceID)
	if err != nil {
		return "", fmt.Errorf("create from template %s: %w", templateID, err)
	}
	if err := b.Load(ctx, created.ID); err != nil {
		return created.ID, err
	}
	return created.ID, nil
}

// Delete removes the current workflow from the backend and resets the store.
func (b *Bridge) Delete(ctx context.Context) error {
	id := b.store.Workflow().ID
	if id == "" {
		return ErrNotSaved
	}
	if err := b.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete workflow %s: %w", id, err)
	}
	b.store.Reset()
	return nil
}

// NodeTypes returns the backend's node catalog, fetched once.
func (b *Bridge) NodeTypes(ctx context.Context) ([]nodetype.Spec, error) {
	return b.nodeTypes.Load(ctx)
}

func (b *Bridge) fetchNodeTypes(ctx context.Context) ([]nodetype.Spec, error) {
	infos, err := b.backend.NodeTypes(ctx)
	if err != nil {
		return nil, err
	}
	specs := make([]nodetype.Spec, 0, len(infos))
	for _, info := range infos {
		specs = append(specs, nodetype.FromInfo(info))
	}
	return specs, nil
}

// Templates returns the preset workflows, fetched once.
func (b *Bridge) Templates(ctx context.Context) ([]api.Template, error) {
	return b.templates.Load(ctx)
}

// RefreshCatalogs drops cached node types and templates.
func (b *Bridge) RefreshCatalogs() {
	b.nodeTypes.Invalidate()
	b.templates.Invalidate()
}

// Validate lints the current graph on the backend.
func (b *Bridge) Validate(ctx context.Context) (workflow.Report, error) {
	return b.backend.Validate(ctx, Encode(b.store.Workflow()))
}

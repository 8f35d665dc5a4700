package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"resenas/internal/storage"
	"resenas/pkg/models"
)

// Store manages the review collection. Every call reloads the whole
// document from the backend; mutating calls rewrite it entirely. Mutations
// are serialized by mu so concurrent requests in this process cannot lose
// each other's writes.
type Store struct {
	backend storage.Backend
	log     *zap.Logger
	tracer  trace.Tracer
	strict  bool

	mu sync.Mutex
}

type Option func(*Store)

// WithStrictLoad makes unreadable or corrupt documents fail the request
// instead of reading as an empty collection.
func WithStrictLoad(strict bool) Option {
	return func(s *Store) { s.strict = strict }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		if t != nil {
			s.tracer = t
		}
	}
}

func NewStore(backend storage.Backend, log *zap.Logger, opts ...Option) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		backend: backend,
		log:     log,
		tracer:  noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend names the document location, for health output.
func (s *Store) Backend() string { return s.backend.Name() }

// Ping checks that the document can be read. A document that was never
// written is fine.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.backend.Read(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Store) List(ctx context.Context) (out []models.Review, err error) {
	ctx, span := s.tracer.Start(ctx, "reviews.List")
	defer func() { finish(span, err) }()

	return s.loadAll(ctx)
}

func (s *Store) Get(ctx context.Context, id int64) (out *models.Review, err error) {
	ctx, span := s.tracer.Start(ctx, "reviews.Get")
	defer func() { finish(span, err) }()

	all, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	r := all[idx]
	return &r, nil
}

func (s *Store) Search(ctx context.Context, f Filter) (out []models.Review, err error) {
	ctx, span := s.tracer.Start(ctx, "reviews.Search")
	defer func() { finish(span, err) }()

	all, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]models.Review, 0, len(all))
	for _, r := range all {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Create validates in, assigns the next id (max existing + 1) and persists
// the new review at the end of the collection.
func (s *Store) Create(ctx context.Context, in CreateInput) (out *models.Review, err error) {
	ctx, span := s.tracer.Start(ctx, "reviews.Create")
	defer func() { finish(span, err) }()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	r := in.build(nextID(all))
	all = append(all, r)
	if err := s.saveAll(ctx, all); err != nil {
		return nil, err
	}
	return &r, nil
}

// Update applies a partial update. A missing id is reported before any
// validation problem in the input.
func (s *Store) Update(ctx context.Context, id int64, in UpdateInput) (out *models.Review, err error) {
	ctx, span := s.tracer.Start(ctx, "reviews.Update")
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	in.apply(&all[idx])
	if err := s.saveAll(ctx, all); err != nil {
		return nil, err
	}
	r := all[idx]
	return &r, nil
}

func (s *Store) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "reviews.Delete")
	defer func() { finish(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadAll(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(all, id)
	if idx < 0 {
		return ErrNotFound
	}
	all = append(all[:idx], all[idx+1:]...)
	return s.saveAll(ctx, all)
}

// Replace overwrites the whole collection with records, keeping their ids.
func (s *Store) Replace(ctx context.Context, records []models.Review) (err error) {
	ctx, span := s.tracer.Start(ctx, "reviews.Replace")
	defer func() { finish(span, err) }()

	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		if r.ID <= 0 {
			return &ValidationError{Field: "id", Message: fmt.Sprintf("id inválido: %d", r.ID)}
		}
		if _, dup := seen[r.ID]; dup {
			return &ValidationError{Field: "id", Message: fmt.Sprintf("id duplicado: %d", r.ID)}
		}
		seen[r.ID] = struct{}{}

		in := CreateInput{Authors: r.Authors, Title: r.Title}
		if r.Rating != 0 {
			v := Rating(r.Rating)
			in.Rating = &v
		}
		if err := in.Validate(); err != nil {
			return err
		}
	}

	if records == nil {
		records = []models.Review{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAll(ctx, records)
}

// loadAll reads and decodes the collection. A document that does not exist
// yet is an empty collection. Other failures are logged and, unless the
// store is strict, also read as an empty collection.
func (s *Store) loadAll(ctx context.Context) ([]models.Review, error) {
	b, err := s.backend.Read(ctx)
	if errors.Is(err, storage.ErrNotExist) {
		s.log.Debug("review document not found, starting empty", zap.String("backend", s.backend.Name()))
		return []models.Review{}, nil
	}
	if err == nil {
		var out []models.Review
		if err = json.Unmarshal(b, &out); err == nil {
			if out == nil {
				out = []models.Review{}
			}
			return out, nil
		}
		err = fmt.Errorf("decode document: %w", err)
	}

	s.log.Error("load reviews",
		zap.String("backend", s.backend.Name()),
		zap.Bool("strict", s.strict),
		zap.Error(err),
	)
	if s.strict {
		return nil, &StorageError{Op: "load", Err: err}
	}
	return []models.Review{}, nil
}

// saveAll encodes the collection with two-space indentation and overwrites
// the document.
func (s *Store) saveAll(ctx context.Context, records []models.Review) error {
	b, err := json.MarshalIndent(records, "", "  ")
	if err == nil {
		err = s.backend.Write(ctx, b)
	}
	if err != nil {
		s.log.Error("save reviews",
			zap.String("backend", s.backend.Name()),
			zap.Int("count", len(records)),
			zap.Error(err),
		)
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}

func indexOf(all []models.Review, id int64) int {
	for i := range all {
		if all[i].ID == id {
			return i
		}
	}
	return -1
}

func nextID(all []models.Review) int64 {
	var top int64
	for _, r := range all {
		if r.ID > top {
			top = r.ID
		}
	}
	return top + 1
}

func finish(span trace.Span, err error) {
	var se *StorageError
	if errors.As(err, &se) {
		span.RecordError(err)
		span.SetStatus(codes.Error, se.Op)
	}
	span.End()
}

package mock

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/poiesic/kbimport/remote"
)

// Service is a test double for remote.Service.
// It allows custom behavior injection via function fields and records every
// call for assertions. The zero value is usable; all operations succeed with
// generated ids. Safe for concurrent use.
type Service struct {
	// HealthCheckFunc is called by HealthCheck if set.
	HealthCheckFunc func(ctx context.Context) error

	// CreateFunc is called by CreateKnowledgeBase if set.
	CreateFunc func(ctx context.Context, name string) (string, error)

	// FindFunc is called by FindKnowledgeBase if set.
	// If nil, no knowledge base is ever found.
	FindFunc func(ctx context.Context, name string) (string, bool, error)

	// UploadFunc is called by UploadFile if set.
	UploadFunc func(ctx context.Context, filename string, content io.Reader) (string, error)

	// AddFunc is called by AddFileToKnowledgeBase if set.
	AddFunc func(ctx context.Context, kbID, fileID string) error

	mu            sync.Mutex
	healthCalls   int
	createCalls   []string // base names, in call order
	findCalls     []string
	uploadCalls   []string // filenames, in call order
	addCalls      []AddCall
	inFlight      int
	maxInFlight   int
	uploadStarted chan string // optional; receives filenames as uploads begin
}

// AddCall records one AddFileToKnowledgeBase invocation.
type AddCall struct {
	KnowledgeBaseID string
	FileID          string
}

// NewService creates a mock service with default always-succeed behavior.
func NewService() *Service {
	return &Service{}
}

// HealthCheck counts the call and delegates to HealthCheckFunc when set.
func (s *Service) HealthCheck(ctx context.Context) error {
	s.mu.Lock()
	s.healthCalls++
	s.mu.Unlock()

	if s.HealthCheckFunc != nil {
		return s.HealthCheckFunc(ctx)
	}
	return nil
}

// CreateKnowledgeBase counts the call and delegates to CreateFunc when set.
// Default behavior returns a generated id.
func (s *Service) CreateKnowledgeBase(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	s.createCalls = append(s.createCalls, name)
	s.mu.Unlock()

	if s.CreateFunc != nil {
		return s.CreateFunc(ctx, name)
	}
	return "kb-" + uuid.NewString(), nil
}

// FindKnowledgeBase counts the call and delegates to FindFunc when set.
// Default behavior finds nothing.
func (s *Service) FindKnowledgeBase(ctx context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	s.findCalls = append(s.findCalls, name)
	s.mu.Unlock()

	if s.FindFunc != nil {
		return s.FindFunc(ctx, name)
	}
	return "", false, nil
}

// UploadFile counts the call, tracks in-flight concurrency, and delegates to
// UploadFunc when set. Default behavior drains the reader and returns a
// generated id.
func (s *Service) UploadFile(ctx context.Context, filename string, content io.Reader) (string, error) {
	s.mu.Lock()
	s.uploadCalls = append(s.uploadCalls, filename)
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	started := s.uploadStarted
	s.mu.Unlock()

	if started != nil {
		started <- filename
	}

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.UploadFunc != nil {
		return s.UploadFunc(ctx, filename, content)
	}

	if _, err := io.Copy(io.Discard, content); err != nil {
		return "", err
	}
	return "file-" + uuid.NewString(), nil
}

// AddFileToKnowledgeBase counts the call and delegates to AddFunc when set.
func (s *Service) AddFileToKnowledgeBase(ctx context.Context, kbID, fileID string) error {
	s.mu.Lock()
	s.addCalls = append(s.addCalls, AddCall{KnowledgeBaseID: kbID, FileID: fileID})
	s.mu.Unlock()

	if s.AddFunc != nil {
		return s.AddFunc(ctx, kbID, fileID)
	}
	return nil
}

// HealthCalls returns the number of HealthCheck invocations.
func (s *Service) HealthCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.healthCalls
}

// CreateCalls returns the base names passed to CreateKnowledgeBase, in order.
func (s *Service) CreateCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.createCalls...)
}

// FindCalls returns the base names passed to FindKnowledgeBase, in order.
func (s *Service) FindCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.findCalls...)
}

// UploadCalls returns the filenames passed to UploadFile, in call order.
func (s *Service) UploadCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploadCalls...)
}

// AddCalls returns the recorded attach invocations, in call order.
func (s *Service) AddCalls() []AddCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AddCall(nil), s.addCalls...)
}

// MutatingCalls returns the total count of create, upload, and add calls.
func (s *Service) MutatingCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.createCalls) + len(s.uploadCalls) + len(s.addCalls)
}

// MaxInFlightUploads returns the highest number of concurrent UploadFile
// calls observed.
func (s *Service) MaxInFlightUploads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// NotifyUploadStarted makes UploadFile send each filename to ch as the
// upload begins, letting tests hold uploads open to observe concurrency.
func (s *Service) NotifyUploadStarted(ch chan string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadStarted = ch
}

// Reset clears all recorded calls and injected behavior.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.healthCalls = 0
	s.createCalls = nil
	s.findCalls = nil
	s.uploadCalls = nil
	s.addCalls = nil
	s.inFlight = 0
	s.maxInFlight = 0
	s.uploadStarted = nil
	s.HealthCheckFunc = nil
	s.CreateFunc = nil
	s.FindFunc = nil
	s.UploadFunc = nil
	s.AddFunc = nil
}

var _ remote.Service = (*Service)(nil)

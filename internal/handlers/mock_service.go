package handlers

import (
	"context"
	"net/http"
	"strings"

	"crashgate/internal/models"
	"crashgate/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastGenUsername string
	lastGenPassword string
	lastParseToken  string
}

func (m *mockAuth) EnsureOperator(ctx context.Context, username, password string) (int, error) {
	return m.parseID, nil
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockExclusions struct {
	items      map[string]models.Exclusion
	err        error
	refreshErr error

	lastInput service.ExclusionInput
	lastID    string
}

func newMockExclusions(items ...models.Exclusion) *mockExclusions {
	m := &mockExclusions{items: make(map[string]models.Exclusion)}
	for _, it := range items {
		m.items[it.ID] = it
	}
	return m
}

func (m *mockExclusions) Create(ctx context.Context, in service.ExclusionInput) (models.Exclusion, error) {
	m.lastInput = in
	if m.err != nil {
		return models.Exclusion{}, m.err
	}
	e := models.Exclusion{ID: "new-id", Kind: in.Kind, Pattern: strings.TrimSpace(in.Pattern), Comment: in.Comment}
	m.items[e.ID] = e
	return e, m.refreshErr
}
func (m *mockExclusions) Get(ctx context.Context, id string) (models.Exclusion, error) {
	m.lastID = id
	if m.err != nil {
		return models.Exclusion{}, m.err
	}
	e, ok := m.items[id]
	if !ok {
		return models.Exclusion{}, service.ErrExclusionNotFound
	}
	return e, nil
}
func (m *mockExclusions) List(ctx context.Context) ([]models.Exclusion, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.Exclusion, 0, len(m.items))
	for _, e := range m.items {
		out = append(out, e)
	}
	return out, nil
}
func (m *mockExclusions) Update(ctx context.Context, id string, in service.ExclusionInput) (models.Exclusion, error) {
	m.lastID, m.lastInput = id, in
	if m.err != nil {
		return models.Exclusion{}, m.err
	}
	e, ok := m.items[id]
	if !ok {
		return models.Exclusion{}, service.ErrExclusionNotFound
	}
	e.Kind, e.Pattern, e.Comment = in.Kind, in.Pattern, in.Comment
	m.items[id] = e
	return e, m.refreshErr
}
func (m *mockExclusions) Delete(ctx context.Context, id string) error {
	m.lastID = id
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return service.ErrExclusionNotFound
	}
	delete(m.items, id)
	return m.refreshErr
}
func (m *mockExclusions) Load(ctx context.Context) error { return m.err }

type mockPipeline struct {
	status    models.PipelineStatus
	err       error
	ingested  []models.LogEvent
	resetCall int
}

func (m *mockPipeline) Ingest(ctx context.Context, ev models.LogEvent) error {
	if m.err != nil {
		return m.err
	}
	m.ingested = append(m.ingested, ev)
	return nil
}
func (m *mockPipeline) Status() (models.PipelineStatus, error) {
	return m.status, m.err
}
func (m *mockPipeline) Reset() error {
	m.resetCall++
	return m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

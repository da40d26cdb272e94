package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// mockRAGService is a mock implementation of driving.RAGService.
type mockRAGService struct {
	answer  *domain.Answer
	results []domain.RetrievalResult
	info    *domain.SystemInfo
	err     error

	lastQuery string
	lastTopK  int
}

func (m *mockRAGService) Initialize(_ context.Context, _ []domain.DocumentSource) error {
	return m.err
}

func (m *mockRAGService) AddDocuments(_ context.Context, _ []domain.DocumentSource) (int, error) {
	return 0, m.err
}

func (m *mockRAGService) RemoveDocument(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockRAGService) Ask(_ context.Context, query string) (*domain.Answer, error) {
	m.lastQuery = query
	return m.answer, m.err
}

func (m *mockRAGService) Search(_ context.Context, query string, topK int) ([]domain.RetrievalResult, error) {
	m.lastQuery = query
	m.lastTopK = topK
	return m.results, m.err
}

func (m *mockRAGService) Reset(_ context.Context) error {
	return m.err
}

func (m *mockRAGService) Info(_ context.Context) (*domain.SystemInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.info == nil {
		return &domain.SystemInfo{}, nil
	}
	return m.info, nil
}

func (m *mockRAGService) Close() error {
	return nil
}

package proposal

import (
	"bytes"
	"campus-project-hub/internal/domain"
	apiError "campus-project-hub/internal/errors"
	"campus-project-hub/internal/files"
	"campus-project-hub/internal/middleware"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mock implementation of Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CreateProposal(ctx context.Context, projectID, authorID uint64, input CreateInput) (*domain.Proposal, []files.AttachResult, error) {
	args := m.Called(ctx, projectID, authorID, input)
	var proposal *domain.Proposal
	if args.Get(0) != nil {
		proposal = args.Get(0).(*domain.Proposal)
	}
	var results []files.AttachResult
	if args.Get(1) != nil {
		results = args.Get(1).([]files.AttachResult)
	}
	return proposal, results, args.Error(2)
}

func (m *MockService) Transition(ctx context.Context, proposalID, requesterID uint64, target domain.ProposalStatus) (*domain.Proposal, error) {
	args := m.Called(ctx, proposalID, requesterID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Proposal), args.Error(1)
}

func (m *MockService) ListForProject(ctx context.Context, projectID uint64) ([]domain.Proposal, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Proposal), args.Error(1)
}

func (m *MockService) GetProposal(ctx context.Context, proposalID uint64) (*domain.Proposal, error) {
	args := m.Called(ctx, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Proposal), args.Error(1)
}

func (m *MockService) ListAttachments(ctx context.Context, proposalID, requesterID uint64) ([]domain.AttachedFile, error) {
	args := m.Called(ctx, proposalID, requesterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AttachedFile), args.Error(1)
}

const testUserID = uint64(2)

func setupRouter(service Service, sessions *Sessions) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.Use(func(c *gin.Context) {
		c.Set("user_id", testUserID)
		c.Next()
	})

	handler := NewHandler(service, sessions)
	router.POST("/projects/:id/proposals", handler.Create)
	router.GET("/projects/:id/proposals", handler.List)
	router.GET("/projects/:id/proposals/:proposalId", handler.Show)
	router.PATCH("/projects/:id/proposals/:proposalId", handler.Transition)
	router.GET("/projects/:id/proposals/:proposalId/files", handler.ListFiles)
	router.POST("/projects/:id/pending", handler.RecordPending)
	router.POST("/projects/:id/pending/submit", handler.SubmitPending)
	router.DELETE("/projects/:id/pending", handler.AbandonPending)
	return router
}

func multipartProposal(t *testing.T, changes domain.ChangeSet, fileNames ...string) (*bytes.Buffer, string) {
	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)

	raw, err := json.Marshal(changes)
	assert.NoError(t, err)
	assert.NoError(t, writer.WriteField("changes", string(raw)))

	for _, name := range fileNames {
		part, err := writer.CreateFormFile("files", name)
		assert.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		assert.NoError(t, err)
	}

	assert.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func errorKind(t *testing.T, body *bytes.Buffer) string {
	var resp struct {
		Kind string `json:"kind"`
	}
	assert.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp.Kind
}

func TestCreateEndpoint_ReportsFailedFiles(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, NewSessions())

	service.On("CreateProposal", mock.Anything, uint64(10), testUserID, mock.Anything).Return(
		&domain.Proposal{ID: 100, ProjectID: 10, Status: domain.StatusOpen},
		[]files.AttachResult{
			{Name: "a.pdf", Ref: &domain.AttachedFile{ID: 1, Name: "a.pdf"}},
			{Name: "a.pdf", Err: apiError.Upload(`File "a.pdf" already attached`, nil)},
		},
		nil,
	)

	body, contentType := multipartProposal(t, titleChange("A", "B"), "a.pdf", "a.pdf")
	req := httptest.NewRequest(http.MethodPost, "/projects/10/proposals", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Proposal    domain.Proposal `json:"proposal"`
		FailedFiles []failedFile    `json:"failed_files"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(100), resp.Proposal.ID)
	assert.Len(t, resp.FailedFiles, 1)
	assert.Equal(t, "a.pdf", resp.FailedFiles[0].Name)
}

func TestCreateEndpoint_MalformedChangeSet(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, NewSessions())

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	assert.NoError(t, writer.WriteField("changes", "{not json"))
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/projects/10/proposals", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", errorKind(t, w.Body))
	service.AssertNotCalled(t, "CreateProposal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransitionEndpoint_StatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		serviceErr error
		wantCode   int
		wantKind   string
	}{
		{"approved", nil, http.StatusOK, ""},
		{"invalid edge", apiError.InvalidTransition("Cannot move proposal from merged to approved", nil), http.StatusBadRequest, "invalid_transition"},
		{"baseline moved", apiError.Conflict("Project changed since this proposal was created", nil), http.StatusConflict, "conflict"},
		{"not the owner", apiError.Forbidden("Only the project owner can review proposals", nil), http.StatusForbidden, "authorization"},
		{"missing proposal", apiError.NotFound("Proposal not found", nil), http.StatusNotFound, "not_found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := new(MockService)
			router := setupRouter(service, NewSessions())

			if tc.serviceErr == nil {
				service.On("Transition", mock.Anything, uint64(100), testUserID, domain.StatusApproved).
					Return(&domain.Proposal{ID: 100, Status: domain.StatusApproved}, nil)
			} else {
				service.On("Transition", mock.Anything, uint64(100), testUserID, domain.StatusApproved).
					Return(nil, tc.serviceErr)
			}

			req := httptest.NewRequest(http.MethodPatch, "/projects/10/proposals/100",
				strings.NewReader(`{"status": "approved"}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.wantCode, w.Code)
			if tc.wantKind != "" {
				assert.Equal(t, tc.wantKind, errorKind(t, w.Body))
			}
		})
	}
}

func TestTransitionEndpoint_MissingStatus(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, NewSessions())

	req := httptest.NewRequest(http.MethodPatch, "/projects/10/proposals/100", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", errorKind(t, w.Body))
}

func TestListEndpoint(t *testing.T) {
	service := new(MockService)
	router := setupRouter(service, NewSessions())

	service.On("ListForProject", mock.Anything, uint64(10)).Return(
		[]domain.Proposal{{ID: 2, ProjectID: 10}, {ID: 1, ProjectID: 10}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/projects/10/proposals", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var proposals []domain.Proposal
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposals))
	assert.Len(t, proposals, 2)
	assert.Equal(t, uint64(2), proposals[0].ID)
}

func recordPendingChanges(t *testing.T, router *gin.Engine, changes domain.ChangeSet, comment string) *httptest.ResponseRecorder {
	payload, err := json.Marshal(RecordPendingRequest{Changes: changes, Comment: comment})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/projects/10/pending", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPendingFlow_FailedSubmitKeepsSession(t *testing.T) {
	service := new(MockService)
	sessions := NewSessions()
	router := setupRouter(service, sessions)

	w := recordPendingChanges(t, router, titleChange("A", "B"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = recordPendingChanges(t, router, nil, "please review")
	assert.Equal(t, http.StatusOK, w.Code)

	// the backend rejects the first submission
	service.On("CreateProposal", mock.Anything, uint64(10), testUserID, mock.Anything).
		Return(nil, nil, apiError.Conflict("Project changed since you loaded it", nil)).Once()

	req := httptest.NewRequest(http.MethodPost, "/projects/10/pending/submit", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	// nothing was lost
	pending := sessions.Get(testUserID, 10)
	assert.False(t, pending.Empty())
	assert.Equal(t, []ChangeKind{ChangeDetails, ChangeComments}, pending.Pending())

	// the retry succeeds with the same staged content and tears the session down
	service.On("CreateProposal", mock.Anything, uint64(10), testUserID, mock.MatchedBy(func(input CreateInput) bool {
		return len(input.Changes) == 1 && input.Comment == "please review"
	})).Return(&domain.Proposal{ID: 100}, []files.AttachResult{}, nil).Once()

	req = httptest.NewRequest(http.MethodPost, "/projects/10/pending/submit", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	assert.True(t, sessions.Get(testUserID, 10).Empty())
}

func TestPendingFlow_RecordNothing(t *testing.T) {
	router := setupRouter(new(MockService), NewSessions())

	w := recordPendingChanges(t, router, nil, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", errorKind(t, w.Body))
}

func TestPendingFlow_RecordFile(t *testing.T) {
	sessions := NewSessions()
	router := setupRouter(new(MockService), sessions)

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "draft.pdf")
	assert.NoError(t, err)
	_, err = part.Write([]byte("draft"))
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/projects/10/pending", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []ChangeKind{ChangeFiles}, sessions.Get(testUserID, 10).Pending())
}

func TestAbandonPending(t *testing.T) {
	service := new(MockService)
	sessions := NewSessions()
	router := setupRouter(service, sessions)

	w := recordPendingChanges(t, router, titleChange("A", "B"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, sessions.Get(testUserID, 10).Empty())

	req := httptest.NewRequest(http.MethodDelete, "/projects/10/pending", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)

	assert.Equal(t, http.StatusNoContent, w2.Code)
	assert.True(t, sessions.Get(testUserID, 10).Empty())
	service.AssertNotCalled(t, "CreateProposal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

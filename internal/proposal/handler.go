package proposal

import (
	"bytes"
	"campus-project-hub/internal/domain"
	"campus-project-hub/internal/errors"
	"campus-project-hub/internal/files"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service  Service
	sessions *Sessions
}

func NewHandler(service Service, sessions *Sessions) *Handler {
	return &Handler{service: service, sessions: sessions}
}

// failedFile is the per-file error entry of a create response.
type failedFile struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

func toFailedFiles(results []files.AttachResult) []failedFile {
	failed := make([]failedFile, 0)
	for _, res := range results {
		if res.Err != nil {
			failed = append(failed, failedFile{Name: res.Name, Error: res.Err.Error()})
		}
	}
	return failed
}

// Create accepts a multipart proposal submission: optional title and
// description, a JSON changeset, and any number of files.
func (h *Handler) Create(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.Error(errors.Validation("Expected a multipart form", err))
		return
	}

	changes, err := decodeChangeSet(c.PostForm("changes"))
	if err != nil {
		c.Error(errors.Validation("Malformed changeset", err))
		return
	}

	uploads, err := readUploads(form.File["files"])
	if err != nil {
		c.Error(errors.Upload("Can't read uploaded file", err))
		return
	}

	userID, _ := c.Get("user_id")

	proposal, results, err := h.service.CreateProposal(
		c.Request.Context(),
		projectID,
		userID.(uint64),
		CreateInput{
			Title:       c.PostForm("title"),
			Description: c.PostForm("description"),
			Comment:     c.PostForm("comment"),
			Changes:     changes,
			Files:       uploads,
		},
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"proposal":     proposal,
		"failed_files": toFailedFiles(results),
	})
}

type TransitionRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) Transition(c *gin.Context) {
	proposalID, err := strconv.ParseUint(c.Param("proposalId"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid proposal id", err))
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.Validation("Missing target status", err))
		return
	}

	userID, _ := c.Get("user_id")

	proposal, err := h.service.Transition(
		c.Request.Context(),
		proposalID,
		userID.(uint64),
		domain.ProposalStatus(req.Status),
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

func (h *Handler) List(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	proposals, err := h.service.ListForProject(c.Request.Context(), projectID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, proposals)
}

func (h *Handler) Show(c *gin.Context) {
	proposalID, err := strconv.ParseUint(c.Param("proposalId"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid proposal id", err))
		return
	}

	proposal, err := h.service.GetProposal(c.Request.Context(), proposalID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, proposal)
}

func (h *Handler) ListFiles(c *gin.Context) {
	proposalID, err := strconv.ParseUint(c.Param("proposalId"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid proposal id", err))
		return
	}

	userID, _ := c.Get("user_id")

	refs, err := h.service.ListAttachments(c.Request.Context(), proposalID, userID.(uint64))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, refs)
}

type RecordPendingRequest struct {
	Changes domain.ChangeSet `json:"changes"`
	Comment string           `json:"comment"`
}

// RecordPending stages one edit into the session's aggregator. A multipart
// request carries a file, a JSON body carries field changes and comments.
func (h *Handler) RecordPending(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	userID, _ := c.Get("user_id")
	pending := h.sessions.Get(userID.(uint64), projectID)

	if fileHeader, err := c.FormFile("file"); err == nil {
		up, err := bufferUpload(fileHeader)
		if err != nil {
			c.Error(errors.Upload("Can't read uploaded file", err))
			return
		}
		pending.RecordFile(up)
		c.JSON(http.StatusOK, gin.H{"pending": pending.Pending()})
		return
	}

	var req RecordPendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.Validation("Invalid pending payload", err))
		return
	}
	if len(req.Changes) == 0 && req.Comment == "" {
		c.Error(errors.Validation("Nothing to record", nil))
		return
	}

	if len(req.Changes) > 0 {
		if err := req.Changes.Validate(); err != nil {
			c.Error(errors.Validation(err.Error(), err))
			return
		}
		pending.RecordDetails(req.Changes)
	}
	if req.Comment != "" {
		pending.RecordComment(req.Comment)
	}

	c.JSON(http.StatusOK, gin.H{"pending": pending.Pending()})
}

type SubmitPendingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// SubmitPending bundles everything the session recorded into one proposal.
// The aggregator is cleared only after the proposal was created, so a failed
// submission keeps the staged edits.
func (h *Handler) SubmitPending(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	var req SubmitPendingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.Validation("Invalid submit payload", err))
			return
		}
	}

	userID, _ := c.Get("user_id")
	pending := h.sessions.Get(userID.(uint64), projectID)
	submission := pending.Flush()

	proposal, results, err := h.service.CreateProposal(
		c.Request.Context(),
		projectID,
		userID.(uint64),
		CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Comment:     submission.Comment,
			Changes:     submission.Changes,
			Files:       submission.Files,
		},
	)
	if err != nil {
		c.Error(err)
		return
	}

	pending.Clear()
	h.sessions.Drop(userID.(uint64), projectID)

	c.JSON(http.StatusCreated, gin.H{
		"proposal":     proposal,
		"failed_files": toFailedFiles(results),
	})
}

// AbandonPending drops the session's staged edits with no residue.
func (h *Handler) AbandonPending(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	userID, _ := c.Get("user_id")
	h.sessions.Drop(userID.(uint64), projectID)

	c.Status(http.StatusNoContent)
}

func decodeChangeSet(raw string) (domain.ChangeSet, error) {
	var cs domain.ChangeSet
	if raw == "" {
		return cs, nil
	}
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func readUploads(headers []*multipart.FileHeader) ([]files.Upload, error) {
	uploads := make([]files.Upload, 0, len(headers))
	for _, header := range headers {
		up, err := bufferUpload(header)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, up)
	}
	return uploads, nil
}

// bufferUpload reads the part into memory so the upload outlives the request
// body (pending files are held across requests until submission).
func bufferUpload(header *multipart.FileHeader) (files.Upload, error) {
	src, err := header.Open()
	if err != nil {
		return files.Upload{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return files.Upload{}, err
	}

	return files.Upload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(data)),
		Reader:      bytes.NewReader(data),
	}, nil
}

package project

import (
	"campus-project-hub/internal/domain"
	"campus-project-hub/internal/errors"
	"campus-project-hub/internal/files"
	"campus-project-hub/internal/utils"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

type CreateProjectRequest struct {
	Title       string   `json:"title" binding:"required,min=1,max=255"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	TechStack   []string `json:"tech_stack"`
	RepoURL     string   `json:"repo_url"`
	DemoURL     string   `json:"demo_url"`
	Course      string   `json:"course"`
	Semester    string   `json:"semester"`
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateProjectRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.Validation("Invalid project payload", err))
		return
	}

	userID, _ := c.Get("user_id")

	project := &domain.Project{
		OwnerID:     userID.(uint64),
		Title:       form.Title,
		Description: form.Description,
		Category:    form.Category,
		TechStack:   domain.StringList(form.TechStack),
		RepoURL:     form.RepoURL,
		DemoURL:     form.DemoURL,
		Course:      form.Course,
		Semester:    form.Semester,
	}

	if err := h.service.CreateProject(c.Request.Context(), project); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

func (h *Handler) List(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)
	result, err := h.service.ListProjects(c.Request.Context(), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Show(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	project, err := h.service.GetProject(c.Request.Context(), projectID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, project)
}

type UpdateProjectRequest struct {
	Changes         domain.ChangeSet `json:"changes" binding:"required"`
	ExpectedVersion uint64           `json:"expected_version" binding:"required"`
}

func (h *Handler) Update(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.Validation("Invalid update payload", err))
		return
	}

	userID, _ := c.Get("user_id")

	project, err := h.service.UpdateProject(
		c.Request.Context(),
		projectID,
		userID.(uint64),
		req.Changes,
		req.ExpectedVersion,
	)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *Handler) UploadFile(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.Error(errors.Validation("Missing file", err))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.Error(errors.Upload("Can't read uploaded file", err))
		return
	}
	defer src.Close()

	userID, _ := c.Get("user_id")

	file, err := h.service.UploadFile(c.Request.Context(), projectID, userID.(uint64), files.Upload{
		Name:        fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Reader:      src,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, file)
}

func (h *Handler) ListFiles(c *gin.Context) {
	projectID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.Validation("Invalid project id", err))
		return
	}

	fs, err := h.service.ListFiles(c.Request.Context(), projectID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, fs)
}

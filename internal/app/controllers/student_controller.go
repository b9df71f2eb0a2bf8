// Package controllers handles HTTP request handling
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mvill/rosterbase/internal/app/models/dto"
	"github.com/mvill/rosterbase/internal/app/services"
	"github.com/mvill/rosterbase/internal/middleware"
	"github.com/mvill/rosterbase/internal/pkg/filestorage"
	"github.com/mvill/rosterbase/internal/pkg/tabular"
)

// StudentController handles student roster operations
type StudentController struct {
	studentService services.StudentService
	uploadStore    filestorage.UploadStore
	logger         zerolog.Logger
}

// NewStudentController creates a new StudentController
func NewStudentController(studentService services.StudentService, uploadStore filestorage.UploadStore, logger zerolog.Logger) *StudentController {
	return &StudentController{
		studentService: studentService,
		uploadStore:    uploadStore,
		logger:         logger,
	}
}

// GetAllStudents returns every student record across all course partitions
func (c *StudentController) GetAllStudents(ctx *gin.Context) {
	students, err := c.studentService.GetAllStudents(ctx.Request.Context())
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to list students")
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(students))
}

// GetStudentsByCourse returns the records in one course partition, optionally
// filtered by a search query.
func (c *StudentController) GetStudentsByCourse(ctx *gin.Context) {
	course := ctx.Param("course")
	search := ctx.Query("search")

	students, err := c.studentService.GetStudentsByCourse(ctx.Request.Context(), course, search)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(students))
}

// AddStudent inserts a single record into a course partition
func (c *StudentController) AddStudent(ctx *gin.Context) {
	course := ctx.Param("course")

	var req dto.AddStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.logger.Warn().Err(err).Msg("Invalid add student payload")
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request payload").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	student, err := c.studentService.AddStudent(ctx.Request.Context(), course, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("course", student.Course).Str("externalId", student.ExternalID).Msg("Student added")
	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(student))
}

// UploadStudents ingests a CSV or XLSX roster file into a course partition
func (c *StudentController) UploadStudents(ctx *gin.Context) {
	course := ctx.PostForm("course")
	if course == "" {
		course = ctx.Query("course")
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Missing upload file").
			WithField("file")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	path, err := c.uploadStore.SaveUpload(fileHeader)
	if err != nil {
		c.logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to store upload")
		middleware.HandleAPIError(ctx, err)
		return
	}
	defer func() {
		if err := c.uploadStore.Remove(path); err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove upload")
		}
	}()

	records, err := tabular.DecodeFile(path)
	if err != nil {
		c.logger.Warn().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to decode upload")
		code := dto.ErrorCodeValidationFailed
		message := "Could not parse the uploaded file"
		if errors.Is(err, tabular.ErrUnsupportedFormat) {
			message = "Only .csv and .xlsx files are supported"
		}
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(code, message).WithField("file")))
		return
	}

	result, err := c.studentService.ImportStudents(ctx.Request.Context(), course, records)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Str("course", course).
		Str("filename", fileHeader.Filename).
		Int("inserted", result.InsertedCount).
		Int("skipped", result.SkippedCount).
		Msg("Roster file imported")

	ctx.JSON(http.StatusCreated, dto.NewAPIResponse(result))
}

// UpdateStudent applies a field-level merge to one record, located by ID
// across all partitions.
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	studentID := ctx.Param("id")

	var req dto.UpdateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request payload").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	student, err := c.studentService.UpdateStudent(ctx.Request.Context(), studentID, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(student))
}

// GetExternalIDMatches reports validated records carrying the given external
// ID. An ID that is validated nowhere is a 404, not an empty result; callers
// use this endpoint as a validity check.
func (c *StudentController) GetExternalIDMatches(ctx *gin.Context) {
	matches, err := c.studentService.GetExternalIDMatches(ctx.Request.Context(), ctx.Param("externalId"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if len(matches) == 0 {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, "no valid student ID found")
		ctx.JSON(http.StatusNotFound, dto.NewErrorResponse(errorDetail))
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(matches))
}

// DeleteStudent removes one record, located by ID across all partitions
func (c *StudentController) DeleteStudent(ctx *gin.Context) {
	student, err := c.studentService.DeleteStudent(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("id", student.ID).Str("course", student.Course).Msg("Student deleted")
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(student))
}

// DeleteStudents removes a batch of records by ID across all partitions
func (c *StudentController) DeleteStudents(ctx *gin.Context) {
	var req dto.BulkDeleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid request payload").
			WithDetails(err.Error())
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	result, err := c.studentService.DeleteStudents(ctx.Request.Context(), req.IDs)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().
		Int("deleted", result.DeletedCount).
		Int("notFound", len(result.NotFoundIDs)).
		Msg("Bulk delete completed")

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}

// DeleteAllByCourse empties one course partition
func (c *StudentController) DeleteAllByCourse(ctx *gin.Context) {
	course := ctx.Param("course")

	result, err := c.studentService.DeleteAllByCourse(ctx.Request.Context(), course)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("course", course).Int("deleted", result.DeletedCount).Msg("Course partition emptied")
	ctx.JSON(http.StatusOK, dto.NewAPIResponse(result))
}

// GetValidationStats reports per-course and overall validation counts
func (c *StudentController) GetValidationStats(ctx *gin.Context) {
	stats, err := c.studentService.GetValidationStats(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, dto.NewAPIResponse(stats))
}

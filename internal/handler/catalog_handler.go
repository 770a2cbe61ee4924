package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studynotion-api/internal/dto"
	"github.com/noah-isme/studynotion-api/internal/service"
	appErrors "github.com/noah-isme/studynotion-api/pkg/errors"
	"github.com/noah-isme/studynotion-api/pkg/response"
)

// CatalogHandler exposes categories and course ratings.
type CatalogHandler struct {
	categories *service.CategoryService
	ratings    *service.RatingService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(categories *service.CategoryService, ratings *service.RatingService) *CatalogHandler {
	return &CatalogHandler{categories: categories, ratings: ratings}
}

// ListCategories godoc
// @Summary List categories
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// CreateCategory godoc
// @Summary Create category
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateCategoryRequest true "Category"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /categories [post]
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid category payload"))
		return
	}
	category, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// CategoryPage godoc
// @Summary Category page
// @Description Courses of the category, courses from other categories and best sellers
// @Tags Catalog
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *CatalogHandler) CategoryPage(c *gin.Context) {
	page, err := h.categories.Page(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, page, nil)
}

// CreateRating godoc
// @Summary Review a course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateRatingRequest true "Rating"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /ratings [post]
func (h *CatalogHandler) CreateRating(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req dto.CreateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rating payload"))
		return
	}
	rating, err := h.ratings.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rating)
}

// ListRatings godoc
// @Summary List reviews
// @Tags Catalog
// @Produce json
// @Param courseId query string false "Course ID"
// @Param limit query int false "Limit"
// @Success 200 {object} response.Envelope
// @Router /ratings [get]
func (h *CatalogHandler) ListRatings(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	views, err := h.ratings.List(c.Request.Context(), c.Query("courseId"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// AverageRating godoc
// @Summary Average course rating
// @Tags Catalog
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/rating [get]
func (h *CatalogHandler) AverageRating(c *gin.Context) {
	avg, err := h.ratings.Average(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, avg, nil)
}

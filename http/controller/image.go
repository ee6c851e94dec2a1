package controller

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chainboard/asset-service/http/controller/dto"
	"github.com/chainboard/asset-service/service"
	"github.com/chainboard/asset-service/utils"
)

// CreateImage is the upload intake: the multipart file lands in a temp path
// that is removed after processing, whatever the outcome.
func (ctrl *Controller) CreateImage(c *gin.Context) {
	ctx := c.Request.Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Failed to get file from form data")
		utils.JSON400(c, "Failed to get file: "+err.Error())
		return
	}

	var resizeParams []dto.ResizeParameter
	if raw := c.PostForm("resize_parameters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &resizeParams); err != nil {
			ctrl.Infra.Logger.WarningWithContextf(ctx, "[Image] Invalid resize_parameters payload: %v", err)
			utils.JSON400(c, "Invalid resize_parameters: expected a JSON array of {width,height}")
			return
		}
	}

	tempPath := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, tempPath); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Failed to save uploaded file")
		utils.JSON500(c, "Failed to save uploaded file")
		return
	}
	defer os.Remove(tempPath)

	specs := make([]service.Dimensions, 0, len(resizeParams))
	for _, param := range resizeParams {
		specs = append(specs, service.Dimensions{Width: param.Width, Height: param.Height})
	}

	result, err := ctrl.Images.Create(ctx, service.CreateImageParams{
		FilePath:    tempPath,
		DisplayName: c.PostForm("name"),
		Fit:         c.PostForm("fit"),
		IsUsed:      c.PostForm("is_used") == "true",
		ResizeSpecs: specs,
	})
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Create failed: %v", err)
		respondImageError(c, err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Image] Created image %s (%s) with %d variants", result.ID, result.Name, len(result.Variants))
	utils.JSON201(c, gin.H{
		"id":       result.ID,
		"name":     result.Name,
		"variants": result.Variants,
	})
}

func (ctrl *Controller) RenameImage(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid image id")
		return
	}

	var req dto.RenameImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "name is required")
		return
	}

	variants, err := ctrl.Images.Rename(ctx, id, req.Name)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Rename of %s failed: %v", id, err)
		respondImageError(c, err)
		return
	}

	utils.JSON200(c, gin.H{"id": id, "variants": variants})
}

func (ctrl *Controller) SetImageUsed(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid image id")
		return
	}

	if err := ctrl.Images.SetUsed(ctx, id); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] SetUsed of %s failed: %v", id, err)
		respondImageError(c, err)
		return
	}

	utils.JSON200(c, gin.H{"id": id})
}

func (ctrl *Controller) DeleteImage(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid image id")
		return
	}

	if err := ctrl.Images.Delete(ctx, id); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Delete of %s failed: %v", id, err)
		respondImageError(c, err)
		return
	}

	utils.JSON200(c, gin.H{"id": id})
}

func (ctrl *Controller) SweepImages(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SweepImagesRequest
	_ = c.ShouldBindJSON(&req)

	deleted, err := ctrl.Images.SweepExpired(ctx, req.Limit)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Image] Sweep failed after deleting %d images: %v", deleted, err)
		respondImageError(c, err)
		return
	}

	utils.JSON200(c, gin.H{"deleted": deleted})
}

// respondImageError maps the service failure kinds onto HTTP status codes.
func respondImageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		utils.JSON400(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		utils.JSON404(c, err.Error())
	case errors.Is(err, service.ErrDuplicateName):
		utils.JSON409(c, err.Error())
	case errors.Is(err, service.ErrDecode):
		utils.JSON422(c, err.Error())
	case errors.Is(err, service.ErrStorage):
		utils.JSON502(c, err.Error())
	default:
		utils.JSON500(c, err.Error())
	}
}

package controller

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chainboard/asset-service/entity"
	"github.com/chainboard/asset-service/infra"
	"github.com/chainboard/asset-service/service"
	"github.com/chainboard/asset-service/utils"
)

const projectCacheKey = "projects"

// Variant sizes generated for every project image: a square listing
// thumbnail and a width-bound detail rendition.
var projectImageSpecs = []service.Dimensions{
	{Width: intPtr(200), Height: intPtr(200)},
	{Width: intPtr(800)},
}

func intPtr(v int) *int {
	return &v
}

// ListProjects serves the public listing through the injected TTL cache;
// the database is only hit on a miss and cache write failures are logged,
// never surfaced.
func (ctrl *Controller) ListProjects(c *gin.Context) {
	ctx := c.Request.Context()

	var projects []entity.Project
	err := ctrl.Infra.Redis.Get(ctx, projectCacheKey, &projects)
	if err == nil {
		utils.JSON200(c, gin.H{"projects": projects})
		return
	}
	if !errors.Is(err, infra.ErrCacheMiss) {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Project] Cache read failed: %v", err)
	}

	projects, err = ctrl.Repository.ProjectRepo.FindActive(ctx)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Failed to list projects: %v", err)
		utils.JSON500(c, "Failed to list projects")
		return
	}

	if err := ctrl.Infra.Redis.Set(ctx, projectCacheKey, projects, ctrl.Config.EnvConfig.Asset.CacheTTL); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Project] Cache write failed: %v", err)
	}

	utils.JSON200(c, gin.H{"projects": projects})
}

// UploadProjectImage replaces a project's image: the variants are generated
// under the project's name, marked used so the sweep never reclaims them,
// and denormalized onto the project record.
func (ctrl *Controller) UploadProjectImage(c *gin.Context) {
	ctx := c.Request.Context()

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid project id")
		return
	}

	project, err := ctrl.Repository.ProjectRepo.FindByID(ctx, projectID)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Project %s not found: %v", projectID, err)
		utils.JSON404(c, "Project not found")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.JSON400(c, "Failed to get file: "+err.Error())
		return
	}

	tempPath := filepath.Join(os.TempDir(), uuid.NewString()+filepath.Ext(fileHeader.Filename))
	if err := c.SaveUploadedFile(fileHeader, tempPath); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Failed to save uploaded file")
		utils.JSON500(c, "Failed to save uploaded file")
		return
	}
	defer os.Remove(tempPath)

	result, err := ctrl.Images.Create(ctx, service.CreateImageParams{
		FilePath:    tempPath,
		DisplayName: project.Name,
		Fit:         service.FitCover,
		ResizeSpecs: projectImageSpecs,
	})
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Image create for %s failed: %v", projectID, err)
		respondImageError(c, err)
		return
	}

	if err := ctrl.Images.SetUsed(ctx, result.ID); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Failed to mark image %s used: %v", result.ID, err)
		respondImageError(c, err)
		return
	}

	if err := ctrl.Repository.ProjectRepo.UpdateImage(ctx, projectID, result.ID, result.Variants); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Project] Failed to attach image %s to project %s: %v", result.ID, projectID, err)
		respondImageError(c, err)
		return
	}

	// Listings now render stale image URLs until the cache window passes;
	// drop the entry instead of waiting.
	if err := ctrl.Infra.Redis.Delete(ctx, projectCacheKey); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Project] Cache invalidation failed: %v", err)
	}

	utils.JSON200(c, gin.H{
		"image_id": result.ID,
		"variants": result.Variants,
	})
}

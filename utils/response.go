package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func JSON200(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": data})
}

func JSON201(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": data})
}

func JSON400(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": message})
}

func JSON404(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": message})
}

func JSON409(c *gin.Context, message string) {
	c.JSON(http.StatusConflict, gin.H{"status": "error", "message": message})
}

func JSON422(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, gin.H{"status": "error", "message": message})
}

func JSON500(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": message})
}

func JSON502(c *gin.Context, message string) {
	c.JSON(http.StatusBadGateway, gin.H{"status": "error", "message": message})
}

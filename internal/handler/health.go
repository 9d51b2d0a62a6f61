package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/soc-console/internal/model"
)

// 헬스체크 엔드포인트
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
}

// 루트 엔드포인트
func Root(c *gin.Context) {
	c.JSON(http.StatusOK, model.MessageResponse{Message: "SOC reference service is running"})
}

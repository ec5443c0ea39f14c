package handler

import (
	"team_chat_server/internal/dto/request"
	"team_chat_server/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler 服务端配置，权限在 service 层校验
type AdminHandler struct {
	adminSvc service.AdminService
}

func NewAdminHandler(adminSvc service.AdminService) *AdminHandler {
	return &AdminHandler{adminSvc: adminSvc}
}

// GetConfig GET /api/v1/admin/config/:category
func (h *AdminHandler) GetConfig(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	data, err := h.adminSvc.GetConfig(c.Request.Context(), c.Param("category"))
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

// PatchConfig PATCH /api/v1/admin/config/:category
func (h *AdminHandler) PatchConfig(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	var req request.PatchConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	data, err := h.adminSvc.PatchConfig(c.Request.Context(), uid, c.Param("category"), req.Config)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, data)
}

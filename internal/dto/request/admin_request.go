package request

// PatchConfigRequest 合并更新配置，值为 null 表示删除该键
type PatchConfigRequest struct {
	Config map[string]any `json:"config" binding:"required"`
}

package request

// MarkReadRequest 标记已读，target_seq 缺省时读到最新
type MarkReadRequest struct {
	TargetSeq *int64 `json:"target_seq" binding:"omitempty,min=0"`
}

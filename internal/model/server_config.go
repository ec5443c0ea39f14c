package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ServerConfig 按类别存储的可在线修改配置
type ServerConfig struct {
	Category  string            `gorm:"column:category;type:varchar(64);primaryKey" json:"category"`
	Value     datatypes.JSONMap `gorm:"column:value" json:"config"`
	UpdatedBy uuid.UUID         `gorm:"column:updated_by;type:char(36)" json:"updated_by"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (ServerConfig) TableName() string {
	return "server_configs"
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileInfo 附件元数据，文件内容存放在外部对象存储
type FileInfo struct {
	ID         uuid.UUID `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	UploaderID uuid.UUID `gorm:"column:uploader_id;type:char(36);index" json:"uploader_id"`
	Name       string    `gorm:"column:name;type:varchar(255)" json:"name"`
	MimeType   string    `gorm:"column:mime_type;type:varchar(128)" json:"mime_type"`
	Size       int64     `gorm:"column:size" json:"size"`
	CreatedAt  time.Time `json:"created_at"`
}

func (FileInfo) TableName() string {
	return "files"
}

func (f *FileInfo) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		f.ID = id
	}
	return nil
}

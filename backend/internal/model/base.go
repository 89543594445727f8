package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── JSON 对象自定义类型 ──

// StringMap 对应 PostgreSQL JSONB 对象，实现 GORM Scanner/Valuer 接口。
type StringMap map[string]string

// Scan 将数据库返回的 JSON 文本解析为 map。
func (m *StringMap) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("StringMap.Scan: unsupported type %T", src)
	}
	if len(b) == 0 {
		*m = nil
		return nil
	}
	out := StringMap{}
	if err := json.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("StringMap.Scan: %w", err)
	}
	*m = out
	return nil
}

// Value 将 map 序列化为 JSON 文本，空 map 存为 NULL。
func (m StringMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BaseModel 通用审计字段（所有业务模型嵌入）
// 操作人 ID 来自外部身份服务，不强制为 uuid
// 时间戳由 GORM 以应用时钟写入，与审计记录同源，时间线才能按同一时钟排序
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null"         json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)" json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null"         json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)" json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"           json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:varchar(64)" json:"deleted_by,omitempty"`
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// newID 主键由应用生成，保证 PostgreSQL 与 SQLite（测试）行为一致
func newID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

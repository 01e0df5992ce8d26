package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    int64                  `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth    = "auth"
	AuditCategoryTopup   = "topup"
	AuditCategoryQuest   = "quest"
	AuditCategoryPackage = "package"
	AuditCategoryPhoto   = "photo"
)

// Audit actions
const (
	AuditActionRegister = "register"
	AuditActionLogin    = "login"

	AuditActionTopupSubmit  = "topup_submit"
	AuditActionTopupApprove = "topup_approve"
	AuditActionTopupReject  = "topup_reject"

	AuditActionQuestJoin   = "quest_join"
	AuditActionQuestCreate = "quest_create"
	AuditActionQuestUpdate = "quest_update"
	AuditActionQuestDelete = "quest_delete"

	AuditActionPackageCreate = "package_create"
	AuditActionPackageUpdate = "package_update"
	AuditActionPackageDelete = "package_delete"

	AuditActionPhotoDelete = "photo_delete"
)

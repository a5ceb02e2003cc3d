package models

// Comment is a user remark attached to a post.
type Comment struct {
	BaseModel

	PostID   string `gorm:"type:uuid;not null;index" json:"post_id"`
	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
	Text     string `gorm:"not null" json:"text"`
}

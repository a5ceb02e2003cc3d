package models

// Post is a staff-authored entry on the public feed.
type Post struct {
	BaseModel

	Title       string `gorm:"not null" json:"title"`
	Description string `json:"description"`
	Photo       string `json:"photo"`

	AuthorID string `gorm:"type:uuid;not null;index" json:"author_id"`
	Author   *User  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author,omitempty"`

	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
	Likes    []Like    `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"likes,omitempty"`
}

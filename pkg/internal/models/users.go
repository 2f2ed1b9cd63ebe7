package models

type User struct {
	BaseModel

	Username string `json:"username" gorm:"uniqueIndex" validate:"max=64"`
}

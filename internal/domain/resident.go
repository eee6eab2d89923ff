package domain

import "time"

// Resident is the identity collaborator for the chat subsystem. Accounts,
// credentials and profile management live in the identity service; this
// backend only reads the fields needed for authorization and display.
type Resident struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex" json:"username"`
	FullName  string    `gorm:"size:200" json:"full_name"`
	Unit      string    `gorm:"size:50" json:"unit,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Resident) TableName() string {
	return "residents"
}

// ResidentResponse is the participant shape used in API responses
type ResidentResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// ToResponse converts Resident to ResidentResponse
func (r *Resident) ToResponse() *ResidentResponse {
	return &ResidentResponse{
		ID:       r.ID,
		Username: r.Username,
		FullName: r.FullName,
	}
}

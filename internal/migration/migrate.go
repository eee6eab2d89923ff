package migration

import (
	"gorm.io/gorm"

	"github.com/condovia/condovia-backend/internal/domain"
)

// Run executes AutoMigrate for the chat tables and seeds demo residents
// when the residents table is empty.
func Run(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Resident{},
		&domain.Conversation{},
		&domain.Message{},
		&domain.MessageReadStatus{},
	); err != nil {
		return err
	}

	var count int64
	db.Model(&domain.Resident{}).Count(&count)
	if count == 0 {
		return seedResidents(db)
	}

	return nil
}

func seedResidents(db *gorm.DB) error {
	residents := []domain.Resident{
		{ID: 1, Username: "admin", FullName: "Administración", Unit: "Oficina"},
		{ID: 2, Username: "mgarcia", FullName: "María García", Unit: "A-101"},
		{ID: 3, Username: "jlopez", FullName: "Juan López", Unit: "B-204"},
	}

	if err := db.Create(&residents).Error; err != nil {
		return err
	}

	db.Exec("ALTER TABLE `residents` AUTO_INCREMENT = 100")

	return nil
}

package main

import (
	"os"

	"partyscan/models"
	"partyscan/pkg/config"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB(cfg config.Config) {
	var err error
	db, err = cfg.OpenDB()
	if err != nil {
		logger.Fatalf("failed to connect postgres database: %v", err)
	}
	// Permission errors during migration are logged and ignored.
	if cfg.DBAutoMigrate {
		// roles first so the users FK can be applied
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			logger.Warnf("migration warning (roles): %v", err)
		}
	}
	seedRoles()

	if cfg.DBAutoMigrate {
		// Migrate models individually so a failure on one doesn't block others
		for name, m := range map[string]any{
			"users":          &models.User{},
			"refresh_tokens": &models.RefreshToken{},
			"characters":     &models.Character{},
			"uploads":        &models.Upload{},
		} {
			if err := db.AutoMigrate(m); err != nil {
				logger.Warnf("migration warning (%s): %v", name, err)
			}
		}
	}
	seedDB(cfg)
}

func seedRoles() {
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}
}

func seedDB(cfg config.Config) {
	seedRoles()

	// Check if admin user exists
	var count int64
	db.Model(&models.User{}).Where("username = ?", "admin").Count(&count)
	if count == 0 {
		var role models.Role
		if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
			logger.Warnf("failed to find administrator role: %v", err)
		}
		rid := role.ID
		admin := models.User{
			Username: "admin",
			RoleID:   &rid,
		}
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
		admin.HashedPassword = hashedPassword
		db.Create(&admin)
		logger.Infof("Seeded admin user: username=admin, password=admin123")
	}
	// Ensure upload directory exists
	if err := os.MkdirAll(cfg.UploadBase, 0755); err != nil {
		logger.Warnf("failed to create upload base dir %s: %v", cfg.UploadBase, err)
	}
}

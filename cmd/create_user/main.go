package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"partyscan/models"
	"partyscan/pkg/config"
	"partyscan/pkg/roster"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	mainName := flag.String("main-name", "", "main character name")
	mainServer := flag.String("main-server", "", "main character server (canonical name or alias)")
	flag.Parse()
	if flag.NArg() < 2 {
		fmt.Println("usage: go run ./cmd/create_user [-main-name N -main-server S] <username> <password>")
		os.Exit(2)
	}
	username := flag.Arg(0)
	password := flag.Arg(1)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	db, err := cfg.OpenDB()
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}

	server := ""
	if *mainName != "" {
		locs := roster.NewNormalizer(nil).Normalize(*mainServer, nil)
		if len(locs) != 1 {
			log.Fatalf("server %q is unknown or ambiguous: %v", *mainServer, locs)
		}
		server = locs[0]
	}

	// ensure roles exist
	var role models.Role
	if err := db.Where("name = ?", "user").First(&role).Error; err != nil {
		role = models.Role{Name: "user", Description: "regular user"}
		db.Create(&role)
	}

	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", username, existing.ID)
		os.Exit(0)
	}

	hpw, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("bcrypt failed: %v", err)
	}
	rid := role.ID
	user := models.User{
		Username:            username,
		HashedPassword:      hpw,
		RoleID:              &rid,
		MainCharacterName:   *mainName,
		MainCharacterServer: server,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("created user %s id=%d\n", username, user.ID)
}

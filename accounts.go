package main

import (
	"context"
	"fmt"

	"partyscan/models"
	"partyscan/pkg/roster"
)

// accountStore is the per-user state the scan endpoints need.
type accountStore interface {
	// MainCharacter returns the user's pinned identity, or nil when none is set.
	MainCharacter(ctx context.Context, username string) (*roster.Identity, error)
	SetMainCharacter(ctx context.Context, username string, id roster.Identity) error
	RecordUpload(ctx context.Context, username string, up models.Upload) error
}

// dbAccounts stores account state in postgres through the global db handle.
type dbAccounts struct{}

func (dbAccounts) user(ctx context.Context, username string) (models.User, error) {
	var u models.User
	if err := db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return models.User{}, fmt.Errorf("user %q: %w", username, err)
	}
	return u, nil
}

func (a dbAccounts) MainCharacter(ctx context.Context, username string) (*roster.Identity, error) {
	u, err := a.user(ctx, username)
	if err != nil {
		return nil, err
	}
	if u.MainCharacterName == "" {
		return nil, nil
	}
	return &roster.Identity{Name: u.MainCharacterName, Location: u.MainCharacterServer}, nil
}

func (a dbAccounts) SetMainCharacter(ctx context.Context, username string, id roster.Identity) error {
	u, err := a.user(ctx, username)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Model(&u).Updates(map[string]any{
		"main_character_name":   id.Name,
		"main_character_server": id.Location,
	}).Error
}

func (a dbAccounts) RecordUpload(ctx context.Context, username string, up models.Upload) error {
	u, err := a.user(ctx, username)
	if err != nil {
		return err
	}
	up.UserID = u.ID
	return db.WithContext(ctx).Create(&up).Error
}

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-gin-marketplace/internal/app"
	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/user"
	"go-gin-marketplace/pkg/utils"
)

type seedUser struct {
	Email     string `yaml:"email"`
	Name      string `yaml:"name"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Confirmed bool   `yaml:"confirmed"`
}

type seedFile struct {
	Users    []seedUser       `yaml:"users"`
	Listings []domain.Listing `yaml:"listings"`
}

func readSeed(path string) (*seedFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &f, nil
}

// runSeed 已存在的用户跳过；listing 的 user_id 为 owner 邮箱
func (c *cli) runSeed(cmd *cobra.Command, a *app.App, args []string) error {
	ctx := cmd.Context()
	f, err := readSeed(args[0])
	if err != nil {
		return err
	}

	names := map[string]string{}
	var users, listings int
	for _, su := range f.Users {
		email := user.NormalizeEmail(su.Email)
		if len(su.Password) < user.MinPasswordLen {
			return fmt.Errorf("seed user %s: password shorter than %d", email, user.MinPasswordLen)
		}
		existing, err := a.Users.FindByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("find user %s: %w", email, err)
		}
		if existing != nil {
			names[email] = existing.Name
			continue
		}
		hash, err := utils.HashPassword(su.Password)
		if err != nil {
			return err
		}
		u := &domain.User{
			ID:           utils.NewID(),
			Email:        email,
			Name:         su.Name,
			PasswordHash: hash,
			Role:         su.Role,
		}
		if u.Name == "" {
			u.Name = email
		}
		if u.Role == "" {
			u.Role = user.RoleUser
		}
		if su.Confirmed {
			now := time.Now()
			u.ConfirmedAt = &now
		}
		if err := a.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("create user %s: %w", email, err)
		}
		names[email] = u.Name
		users++
	}

	for i := range f.Listings {
		l := &f.Listings[i]
		l.UserID = user.NormalizeEmail(l.UserID)
		if l.UserName == "" {
			l.UserName = names[l.UserID]
		}
		if l.Images == nil {
			l.Images = []string{}
		}
		if err := a.Listings.Create(ctx, l); err != nil {
			return fmt.Errorf("create listing %q: %w", l.Title, err)
		}
		listings++
	}
	a.Log.Info("seed loaded", zap.Int("users", users), zap.Int("listings", listings))
	fmt.Fprintf(c.out, "seeded %d users, %d listings\n", users, listings)
	return nil
}

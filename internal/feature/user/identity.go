package user

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/pkg/utils"
)

const (
	MinPasswordLen = 6
	RoleUser       = "user"
	RoleAdmin      = "admin"
)

// Identity 注册/登录/邮箱确认
type Identity struct {
	Users      domain.UserRepository
	Tokens     *auth.JWTer
	Mailer     Mailer
	BaseURL    string
	ConfirmTTL time.Duration
	Log        *zap.Logger
	Now        func() time.Time
}

func (s *Identity) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func validate(email, password string) (string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return "", fail(KindInvalidInput, nil)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fail(KindInvalidInput, err)
	}
	return email, nil
}

// SignUp 创建未确认账号并发送确认邮件；不建立会话。
// 未确认账号重复注册时以新密码为准并重发确认邮件，旧链接随之失效。
func (s *Identity) SignUp(ctx context.Context, email, password string) error {
	email, err := validate(email, password)
	if err != nil {
		return err
	}
	if len(password) < MinPasswordLen {
		return fail(KindWeakPassword, nil)
	}

	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return fail(KindUnavailable, fmt.Errorf("find user: %w", err))
	}
	if u != nil && u.Confirmed() {
		return fail(KindEmailTaken, nil)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fail(KindUnavailable, err)
	}
	if u != nil {
		if err := s.Users.UpdatePassword(ctx, u.ID, hash); err != nil {
			return fail(KindUnavailable, fmt.Errorf("update password: %w", err))
		}
		u.PasswordHash = hash
		s.Log.Info("unconfirmed sign-up repeated", zap.String("user_id", u.ID))
	} else {
		u = &domain.User{
			ID:           utils.NewID(),
			Email:        email,
			Name:         displayName(email),
			PasswordHash: hash,
			Role:         RoleUser,
		}
		if err := s.Users.Create(ctx, u); err != nil {
			return fail(KindUnavailable, fmt.Errorf("create user: %w", err))
		}
		s.Log.Info("user signed up", zap.String("user_id", u.ID))
	}
	return s.sendConfirmation(ctx, u)
}

func (s *Identity) sendConfirmation(ctx context.Context, u *domain.User) error {
	tok, err := s.Tokens.IssueStamped(auth.PurposeConfirm, auth.Identity{UserID: u.ID, Email: u.Email}, PasswordStamp(u.PasswordHash), s.ConfirmTTL)
	if err != nil {
		return fail(KindUnavailable, fmt.Errorf("issue confirm token: %w", err))
	}
	link := strings.TrimRight(s.BaseURL, "/") + "/auth/confirm?token=" + url.QueryEscape(tok)
	if err := s.Mailer.SendConfirmation(ctx, u.Email, link); err != nil {
		return fail(KindUnavailable, fmt.Errorf("send confirmation: %w", err))
	}
	return nil
}

// SignIn 校验密码；未确认邮箱的账号拒绝登录
func (s *Identity) SignIn(ctx context.Context, email, password string) (*domain.User, error) {
	email, err := validate(email, password)
	if err != nil {
		return nil, err
	}
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fail(KindUnavailable, fmt.Errorf("find user: %w", err))
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, fail(KindInvalidCredentials, nil)
	}
	if !u.Confirmed() {
		return nil, fail(KindEmailNotConfirmed, nil)
	}
	return u, nil
}

// Confirm 校验确认 token 并标记邮箱已确认（幂等）
func (s *Identity) Confirm(ctx context.Context, token string) (*domain.User, error) {
	c, err := s.Tokens.Parse(token, auth.PurposeConfirm)
	if err != nil {
		return nil, fail(KindInvalidToken, err)
	}
	u, err := s.Users.FindByID(ctx, c.UID)
	if err != nil {
		return nil, fail(KindUnavailable, fmt.Errorf("find user: %w", err))
	}
	if u == nil || u.Email != c.Email {
		return nil, fail(KindInvalidToken, nil)
	}
	// 密码变更后签发的链接才有效
	if !u.Confirmed() && c.Stamp != PasswordStamp(u.PasswordHash) {
		return nil, fail(KindInvalidToken, nil)
	}
	if !u.Confirmed() {
		at := s.now()
		if err := s.Users.MarkConfirmed(ctx, u.ID, at); err != nil {
			return nil, fail(KindUnavailable, fmt.Errorf("mark confirmed: %w", err))
		}
		u.ConfirmedAt = &at
		s.Log.Info("user confirmed", zap.String("user_id", u.ID))
	}
	return u, nil
}

func SessionIdentity(u *domain.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// PasswordStamp 密码哈希指纹，写进确认 token
func PasswordStamp(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

func displayName(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return "user"
}

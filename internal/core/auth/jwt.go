package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// token 用途，防止确认链接被当成登录态使用
const (
	PurposeSession = "session"
	PurposeConfirm = "confirm"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Role    string `json:"role"` // "user" or "admin"
	Purpose string `json:"pur"`
	Stamp   string `json:"stp,omitempty"` // 确认 token 绑定的密码指纹
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	Now    func() time.Time // 测试注入
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Issue 签发会话 token
func (j *JWTer) Issue(id Identity) (string, error) {
	return j.IssueFor(PurposeSession, id, j.TTL)
}

func (j *JWTer) IssueFor(purpose string, id Identity, ttl time.Duration) (string, error) {
	return j.IssueStamped(purpose, id, "", ttl)
}

// IssueStamped 附带 stamp；校验方比对 Claims.Stamp
func (j *JWTer) IssueStamped(purpose string, id Identity, stamp string, ttl time.Duration) (string, error) {
	now := j.now()
	claims := Claims{
		UID:     id.UserID,
		Email:   id.Email,
		Role:    id.Role,
		Purpose: purpose,
		Stamp:   stamp,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
}

// Parse 校验签名/issuer/过期，并要求 purpose 匹配
func (j *JWTer) Parse(tokenStr, purpose string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Purpose != purpose {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UID, Email: c.Email, Role: c.Role}
}

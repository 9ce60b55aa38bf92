package user

import (
	"errors"
	"fmt"
)

// Kind 身份操作失败类型；对外只暴露 Message()
type Kind int

const (
	KindUnavailable Kind = iota
	KindInvalidInput
	KindInvalidCredentials
	KindEmailNotConfirmed
	KindEmailTaken
	KindWeakPassword
	KindInvalidToken
)

var kindMessages = map[Kind]string{
	KindUnavailable:        "Something went wrong. Please try again.",
	KindInvalidInput:       "Email and password are required.",
	KindInvalidCredentials: "Invalid email or password.",
	KindEmailNotConfirmed:  "Please confirm your email before signing in.",
	KindEmailTaken:         "Unable to create an account with that email.",
	KindWeakPassword:       fmt.Sprintf("Password must be at least %d characters.", MinPasswordLen),
	KindInvalidToken:       "This confirmation link is invalid or has expired.",
}

func (k Kind) Message() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return kindMessages[KindUnavailable]
}

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindEmailNotConfirmed:
		return "email_not_confirmed"
	case KindEmailTaken:
		return "email_taken"
	case KindWeakPassword:
		return "weak_password"
	case KindInvalidToken:
		return "invalid_token"
	default:
		return "unavailable"
	}
}

type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

func fail(k Kind, err error) error { return &AuthError{Kind: k, Err: err} }

// KindOf 非 AuthError 一律视为 KindUnavailable
func KindOf(err error) Kind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnavailable
}

// PublicMessage 可直接展示给用户的文案
func PublicMessage(err error) string { return KindOf(err).Message() }

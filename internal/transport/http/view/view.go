package view

import (
	"embed"
	"fmt"
	"html/template"

	"go-gin-marketplace/internal/core/auth"
	"go-gin-marketplace/internal/domain"
	"go-gin-marketplace/internal/feature/listing"
	"go-gin-marketplace/internal/feature/user"
)

//go:embed templates/*.html
var files embed.FS

const signInPath = "/auth/signin"

// 页面模板名
const (
	PageBrowse   = "browse.html"
	PageListing  = "listing.html"
	PageNotFound = "notfound.html"
	PageError    = "error.html"
	PageSignIn   = "signin.html"
	PageConfirm  = "confirm.html"
	PageSettings = "settings.html"
)

// Templates 解析全部内嵌模板；交给 gin engine.SetHTMLTemplate
func Templates() (*template.Template, error) {
	t, err := template.New("").Funcs(Funcs()).ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// Base 每个页面共有的布局数据
type Base struct {
	Title  string
	Viewer auth.Identity
}

type BrowseQuery struct {
	Q        string
	Category string
	MinPrice string
	MaxPrice string
}

type BrowsePage struct {
	Base
	Query   BrowseQuery
	Items   []domain.Listing
	Total   int64
	Page    int
	PrevURL string
	NextURL string
}

type ListingPage struct {
	Base
	View    listing.View
	Related []domain.Listing
}

type NotFoundPage struct {
	Base
	BackPath string
}

type ErrorPage struct {
	Base
	Message  string
	BackPath string
}

type SignInPage struct {
	Base
	Mode    string // signin / signup
	Email   string
	Error   string
	Message string
}

func (p SignInPage) SignUp() bool { return p.Mode == user.ModeSignUp.String() }

// ToggleURL 切到另一模式的表单地址
func (p SignInPage) ToggleURL() string {
	if user.ParseMode(p.Mode).Toggle() == user.ModeSignUp {
		return signInPath + "?mode=" + user.ModeSignUp.String()
	}
	return signInPath
}

type ConfirmPage struct {
	Base
	OK      bool
	Message string
}

type SettingsPage struct {
	Base
	Listings []domain.Listing
}

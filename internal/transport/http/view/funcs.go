package view

import (
	"bytes"
	"html/template"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md  = goldmark.New(goldmark.WithExtensions(extension.GFM))
	ugc = bluemonday.UGCPolicy()
)

func Funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"ago":      Ago,
		"price":    Price,
		"plural":   Plural,
	}
}

// Markdown 卖家填写的描述：goldmark 渲染后经 bluemonday 过滤
func Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(ugc.SanitizeBytes(buf.Bytes()))
}

func Ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.Time(t)
}

func Price(p float64) string {
	if p == 0 {
		return "Free"
	}
	s := humanize.CommafWithDigits(p, 2)
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i == 2 {
		s += "0"
	}
	return "$" + s
}

// Plural 1 listing / 3 listings
func Plural(n int64, word string) string {
	return english.Plural(int(n), word, "")
}

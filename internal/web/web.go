// Package web は HTML テンプレートを埋め込みで提供します。
package web

import (
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templates embed.FS

// Templates は全テンプレートを読み込んだ *template.Template を返します。
// テンプレート名はファイル名（例: "login.tmpl"）です。
func Templates() *template.Template {
	return template.Must(template.ParseFS(templates, "templates/*.tmpl"))
}

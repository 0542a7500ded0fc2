package forms

import (
	"net/url"
	"strings"
)

type LoginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

func NewLoginForm(v url.Values) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(v.Get("email")),
		Password: v.Get("password"),
	}
}

func (LoginForm) messages() map[string]string {
	return map[string]string{
		"email.required":    "メールアドレスを入力してください",
		"email.email":       "正しい形式のメールアドレスを入力してください",
		"password.required": "パスワードを入力してください",
	}
}

func (f LoginForm) Validate() Errors {
	return check(f)
}

// LoginFailedMessage is shown for any rejected login.
const LoginFailedMessage = "メールアドレスまたはパスワードが間違っています"

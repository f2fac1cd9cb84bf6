package nsapi

import (
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Auth holds the credentials of a nation for private shards and commands.
// The api returns a pin after the first authenticated request, later
// requests send the pin so the password does not have to be checked again.
//
// An Auth is updated by every request it is used with and is not safe for
// concurrent use.
type Auth struct {
	Password  string
	Autologin string
	Pin       string
}

// NewPasswordAuth returns an Auth for a plaintext password.
func NewPasswordAuth(password string) *Auth {
	return &Auth{Password: password}
}

func NewAutologinAuth(autologin string) *Auth {
	return &Auth{Autologin: autologin}
}

func (a *Auth) apply(req *resty.Request) {
	if a == nil {
		return
	}
	if a.Password != "" {
		req.SetHeader("X-Password", a.Password)
	}
	if a.Autologin != "" {
		req.SetHeader("X-Autologin", a.Autologin)
	}
	if a.Pin != "" {
		req.SetHeader("X-Pin", a.Pin)
	}
}

func (a *Auth) update(h http.Header) {
	if a == nil {
		return
	}
	if pin := h.Get("X-Pin"); pin != "" {
		a.Pin = pin
	}
	if autologin := h.Get("X-Autologin"); autologin != "" {
		a.Autologin = autologin
	}
}

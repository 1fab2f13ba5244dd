package controller

import (
	"github.com/ougirez/placealloc/internal/service/allocation"
	"github.com/ougirez/placealloc/internal/service/auth"
	"github.com/ougirez/placealloc/internal/service/practices"
	"github.com/ougirez/placealloc/internal/service/session"
)

type Controller struct {
	practices  *practices.Service
	sessions   *session.Service
	allocation *allocation.Service
	auth       *auth.Service
}

func NewController(
	practices *practices.Service,
	sessions *session.Service,
	allocation *allocation.Service,
	auth *auth.Service,
) *Controller {
	return &Controller{
		practices:  practices,
		sessions:   sessions,
		allocation: allocation,
		auth:       auth,
	}
}

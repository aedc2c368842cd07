package handler

import (
	"github.com/julienschmidt/httprouter"

	"dormly/pkg/contracts"
)

// Handlers registers several handlers on one router.
type Handlers []contracts.Handler

func (hs Handlers) RegisterRoutes(router *httprouter.Router) {
	for _, h := range hs {
		h.RegisterRoutes(router)
	}
}

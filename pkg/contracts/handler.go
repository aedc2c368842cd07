package contracts

import "github.com/julienschmidt/httprouter"

type Handler interface {
	RegisterRoutes(*httprouter.Router)
}

// StreamHandler registers long-lived routes that must not be bounded by the
// request timeout.
type StreamHandler interface {
	RegisterStreamRoutes(*httprouter.Router)
}

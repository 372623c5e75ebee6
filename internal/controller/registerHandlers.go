package controller

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type urlMethodPair struct {
	urlSuffix, method string
}

// EndpointMap is a map containing endpoints and the corresponding handlers that are defined and managed by a controller.
//
// Each entry in the map is organized in the following manner.
//   (urlSuffix, method): handler_function_list
// Thus it takes a URL suffix and an HTTP method as the key to perform a lookup.
type EndpointMap map[urlMethodPair][]gin.HandlerFunc

// A Controller must contain an endpoint map.
type Controller interface {
	GetGroupName() string
	GetEndpointMap() EndpointMap
}

var supportedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodHead,
	http.MethodOptions,
}

// RegisterHandlers registers the endpoint handlers in the controller to the router group.
func RegisterHandlers(r gin.IRouter, c Controller) error {
	group := r.Group(c.GetGroupName())

	for pair, handlers := range c.GetEndpointMap() {
		method, ok := normalizeMethod(pair.method)
		if !ok {
			return fmt.Errorf("unsupported HTTP method '%v'", pair.method)
		}

		group.Handle(method, pair.urlSuffix, handlers...)
	}

	return nil
}

func normalizeMethod(method string) (string, bool) {
	for _, m := range supportedMethods {
		if strings.EqualFold(method, m) {
			return m, true
		}
	}

	return "", false
}

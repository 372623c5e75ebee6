package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIPrefix 为所有 API 的前缀
const APIPrefix = "/api/v1"

// NewRouter 创建带有 CORS 的路由，并将各控制器注册到 `APIPrefix` 下。
func NewRouter(controllers ...Controller) (*gin.Engine, error) {
	router := gin.Default()
	router.Use(CORSMiddleware())

	apiv1Group := router.Group(APIPrefix)
	for _, c := range controllers {
		if err := RegisterHandlers(apiv1Group, c); err != nil {
			return nil, err
		}
	}

	return router, nil
}

// NewKeyServerRouter 创建密钥服务器的路由。metricsHandler 不为空时在 `/metrics` 上公布指标。
func NewKeyServerRouter(keyServerController *KeyServerController, metricsHandler http.Handler) (*gin.Engine, error) {
	router, err := NewRouter(&PingPongController{}, keyServerController)
	if err != nil {
		return nil, err
	}

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	return router, nil
}
